package codes

// ExitCodes maps exit statuses commonly returned by bash, make and cmake to
// their descriptions
var ExitCodes = map[int]string{
	0:   "Success",
	1:   "General failure",
	2:   "Build tool reported errors",
	126: "Command found but not executable",
	127: "Command not found",
	128: "Fatal error (git) or invalid exit argument",
	130: "Interrupted",
	137: "Killed",
	143: "Terminated",
}

// IsSuccess returns true if the exit code indicates a successful step
func IsSuccess(code int) bool {
	return code == 0
}

// Describe returns the description for a given exit code, or a generic message if unknown
func Describe(code int) string {
	if msg, ok := ExitCodes[code]; ok {
		return msg
	}

	if code > 128 && code < 160 {
		return "Terminated by signal"
	}

	return "Unknown error"
}
