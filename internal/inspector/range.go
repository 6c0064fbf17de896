package inspector

import "fmt"

// resolveRange turns the command's positional arguments into an inclusive
// frame window. Arguments go through eval, so debugger expressions work as
// well as literal numbers. An empty selection comes back as first > last.
//
// No arguments selects the whole stack, one argument the first N frames, two
// arguments the window [start, start+count-1] clipped to the stack.
func resolveRange(args []string, eval func(string) (int64, error), total int) (int, int, error) {
	switch len(args) {
	case 0:
		return 0, total - 1, nil

	case 1:
		n, err := eval(args[0])
		if err != nil {
			return 0, 0, fmt.Errorf("frame count: %w", err)
		}
		if n <= 0 {
			return 0, -1, nil
		}
		if n > int64(total) {
			n = int64(total)
		}
		return 0, int(n) - 1, nil

	case 2:
		start, err := eval(args[0])
		if err != nil {
			return 0, 0, fmt.Errorf("start frame: %w", err)
		}
		count, err := eval(args[1])
		if err != nil {
			return 0, 0, fmt.Errorf("frame count: %w", err)
		}
		if count <= 0 {
			return 0, -1, nil
		}
		last := start + count - 1
		if last > int64(total)-1 {
			last = int64(total) - 1
		}
		if start < 0 {
			start = 0
		}
		if last < int64(start) {
			return 0, -1, nil
		}
		return int(start), int(last), nil

	default:
		return 0, 0, fmt.Errorf("usage: stack [count | start count], got %d arguments", len(args))
	}
}
