package logging

import "regexp"

// slackTokenPattern matches bot, user, app and refresh tokens issued by Slack
var slackTokenPattern = regexp.MustCompile(`xox[abposr]-[0-9A-Za-z-]+`)
