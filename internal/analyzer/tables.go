package analyzer

// Tables holds the fixed lookup lists the rules match against. Treat a Tables
// value as read-only once handed to a Detector.
type Tables struct {
	// IOModules are modules that give network or filesystem access.
	IOModules []string
	// ExecutionModules are modules that can run arbitrary code.
	ExecutionModules []string
	// GlobalWatchList are properties of global that expose the sensitive functions.
	GlobalWatchList []string
}

// DefaultTables returns the built-in lists.
func DefaultTables() Tables {
	return Tables{
		IOModules:        []string{"http", "fs", "https", "http2", "net", "datagram"},
		ExecutionModules: []string{"child_process", "repl", "vm", "module"},
		GlobalWatchList:  []string{"Function", "require", "eval"},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
