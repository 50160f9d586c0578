package cli

// RunWithWriter runs the application printing command output to w
var RunWithWriter = run
