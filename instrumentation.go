package chat

import "go.opentelemetry.io/otel"

const scopeName = "github.com/fwojciec/chat"

var tracer = otel.Tracer(scopeName)
