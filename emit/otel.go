package emit

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating one OpenTelemetry span per
// event, named after the event's kind and tagged with its fields as span
// attributes. Grounded on the teacher's graph/emit/otel.go, retargeted from
// the teacher's generic Event{RunID,Step,NodeID,Msg,Meta} shape onto this
// runtime's typed event structs (RunStarted, NodeStarted, ...).
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an OTelEmitter using tracer (e.g.
// otel.Tracer("constellation-runtime")).
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit starts and immediately ends a span representing event; each event is
// a point in time, not a duration, so spans aren't held open across calls.
func (o *OTelEmitter) Emit(event any) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, eventTypeName(event))
	defer span.End()

	attrs := attributesFor(event)
	span.SetAttributes(attrs...)

	if errMsg, isErr := errorMessage(event); isErr {
		span.SetStatus(codes.Error, errMsg)
	}
}

func attributesFor(event any) []attribute.KeyValue {
	switch e := event.(type) {
	case RunStarted:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.String("constellation_id", e.ConstellationID),
			attribute.Int("total_nodes", e.TotalNodes),
		}
	case NodeStarted:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.String("node_id", e.NodeID),
			attribute.String("star_id", e.StarID),
			attribute.String("star_type", e.StarType),
			attribute.Int("node_index", e.NodeIndex),
		}
	case NodeCompleted:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.String("node_id", e.NodeID),
			attribute.Int64("duration_ms", e.DurationMS),
		}
	case NodeFailed:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.String("node_id", e.NodeID),
			attribute.String("error", e.Error),
			attribute.Int64("duration_ms", e.DurationMS),
		}
	case RunPaused:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.String("node_id", e.NodeID),
		}
	case RunResumed:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.String("resumed_from_node", e.ResumedFromNode),
		}
	case RunCompleted:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.Int64("duration_ms", e.DurationMS),
		}
	case RunFailed:
		return []attribute.KeyValue{
			attribute.String("run_id", e.RunID),
			attribute.String("error", e.Error),
			attribute.String("failed_node_id", e.FailedNodeID),
		}
	default:
		return nil
	}
}

func errorMessage(event any) (string, bool) {
	switch e := event.(type) {
	case NodeFailed:
		return e.Error, true
	case RunFailed:
		return e.Error, true
	default:
		return "", false
	}
}
