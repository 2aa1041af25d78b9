package main

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-agentbridge/cmd/agentbridge"

var logger = otelslog.NewLogger(scopeName)
