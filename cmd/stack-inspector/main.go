package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/mikesart/stack-inspector/internal/config"
	"github.com/mikesart/stack-inspector/internal/inspector"
	"github.com/mikesart/stack-inspector/internal/logger"
	"github.com/mikesart/stack-inspector/pkg/color"
	"github.com/mikesart/stack-inspector/pkg/command"
)

// version is overridden by the linker on release builds.
var version = "dev"

// Main entry point for the stack-inspector tool.
func main() {
	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal("Invalid configuration", "error", err)
	}

	logger.Init(cfg.Verbose, cfg.NoColor)
	if cfg.NoColor {
		color.EnableColor(false)
	}

	registry := command.NewRegistry()
	registerCommands(registry, cfg)

	if err := command.Dispatch(registry, "stack", args); err != nil {
		log.Fatal("Inspection failed", "error", err)
	}
}

func registerCommands(r *command.Registry, cfg *config.Config) {
	insp := &inspector.Inspector{
		Addr:      cfg.Addr,
		Binary:    cfg.Binary,
		Goroutine: cfg.Goroutine,
		Depth:     cfg.Depth,
	}

	mustRegister(r, &command.Command{
		Name:     "stack",
		Aliases:  []string{"st"},
		Category: "stack",
		Summary:  "Inspect the stack for large objects",
		Run:      insp.Inspect,
	})
	mustRegister(r, &command.Command{
		Name:     "help",
		Category: "general",
		Summary:  "List available commands",
		Run: func([]string) error {
			printHelp(r)
			return nil
		},
	})
	mustRegister(r, &command.Command{
		Name:     "version",
		Category: "general",
		Summary:  "Print build information",
		Run: func([]string) error {
			fmt.Printf("stack-inspector %s\n", version)
			return nil
		},
	})
}

func mustRegister(r *command.Registry, cmd *command.Command) {
	if err := r.Register(cmd); err != nil {
		log.Fatal("Command registration failed", "command", cmd.Name, "error", err)
	}
}

func printHelp(r *command.Registry) {
	fmt.Printf("Usage: %s [flags] [command] [args]\n\n", os.Args[0])
	for _, cat := range r.Categories() {
		fmt.Println(color.BoldText(cat + " commands:"))
		for _, cmd := range r.ByCategory(cat) {
			name := cmd.Name
			if len(cmd.Aliases) > 0 {
				name += " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			fmt.Printf("  %-16s %s\n", name, cmd.Summary)
		}
		fmt.Println()
	}
	fmt.Println("Run with no command to inspect the whole stack; pass a frame")
	fmt.Println("count or a start and count to narrow the range.")
}
