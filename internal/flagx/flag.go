// Package flagx locates the JSON config file among the command-line
// arguments before the full flag set is parsed.
package flagx

import "strings"

var configFlagNames = map[string]struct{}{
	"-c": {}, "--c": {}, "-config": {}, "--config": {},
}

// ConfigPath returns the value of the -c/-config flag in args, accepting
// both "-c file" and "-config=file" forms. The last occurrence wins. An empty
// string means no config file was requested.
func ConfigPath(args []string) string {
	var path string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		if name, value, ok := strings.Cut(arg, "="); ok {
			if _, known := configFlagNames[name]; known {
				path = value
			}
			continue
		}

		if _, known := configFlagNames[arg]; known && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			path = args[i+1]
			i++
		}
	}
	return path
}
