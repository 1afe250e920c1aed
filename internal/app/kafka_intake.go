package app

import (
	"service-dispatch-go/internal/service/intake"
	"service-dispatch-go/internal/transport/kafka"
)

// makeIntakeHandler adapts the intake processor to the consumer callback.
func makeIntakeHandler(p *intake.Processor) kafka.HandleFunc {
	return p.Handle
}
