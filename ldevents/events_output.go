package ldevents

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

type eventOutputFormatter struct {
	contextFormatter eventContextFormatter
	config           EventsConfiguration
}

func (ef eventOutputFormatter) makeOutputEvents(events []anyEventOutput, summary eventSummary) ([]byte, int) {
	n := len(events)

	w := jwriter.NewWriter()
	arr := w.Array()

	for _, e := range events {
		ef.writeOutputEvent(&w, e)
	}
	if summary.hasCounters() {
		ef.writeSummaryEvent(&w, summary)
		n++
	}

	if n > 0 {
		arr.End()
		return w.Bytes(), n
	}
	return nil, 0
}

func (ef eventOutputFormatter) writeOutputEvent(w *jwriter.Writer, evt anyEventOutput) {
	switch evt := evt.(type) {
	case EvaluationData:
		ef.writeEvaluationEvent(w, evt)

	case CustomEventData:
		obj := w.Object()
		obj.Name("kind").String("custom")
		obj.Name("creationDate").Float64(float64(evt.CreationDate))
		obj.Name("key").String(evt.Key)
		if !evt.Data.IsNull() {
			obj.Name("data")
			evt.Data.WriteToJSONWriter(w)
		}
		writeContextKeys(&obj, &evt.Context.context)
		if evt.HasMetric {
			obj.Name("metricValue").Float64(evt.MetricValue)
		}
		writeSamplingRatio(&obj, evt.SamplingRatio)
		obj.End()

	case IdentifyEventData:
		obj := w.Object()
		obj.Name("kind").String("identify")
		obj.Name("creationDate").Float64(float64(evt.CreationDate))
		obj.Name("context")
		ef.contextFormatter.WriteContext(w, &evt.Context)
		writeSamplingRatio(&obj, evt.SamplingRatio)
		obj.End()

	case MigrationOpEventData:
		ef.writeMigrationOpEvent(w, evt)

	case indexEvent:
		obj := w.Object()
		obj.Name("kind").String("index")
		obj.Name("creationDate").Float64(float64(evt.CreationDate))
		obj.Name("context")
		ef.contextFormatter.WriteContext(w, &evt.Context)
		obj.End()

	case rawEvent:
		w.Raw(evt.data)
	}
}

func (ef eventOutputFormatter) writeEvaluationEvent(w *jwriter.Writer, evt EvaluationData) {
	obj := w.Object()

	kind := "feature"
	if evt.debug {
		kind = "debug"
	}
	obj.Name("kind").String(kind)
	obj.Name("creationDate").Float64(float64(evt.CreationDate))
	obj.Name("key").String(evt.Key)
	obj.Maybe("version", evt.Version.IsDefined()).Int(evt.Version.IntValue())
	obj.Name("context")
	ef.contextFormatter.WriteContext(w, &evt.Context)
	obj.Maybe("variation", evt.Variation.IsDefined()).Int(evt.Variation.IntValue())
	obj.Name("value")
	evt.Value.WriteToJSONWriter(w)
	obj.Name("default")
	evt.Default.WriteToJSONWriter(w)
	writeSamplingRatio(&obj, evt.SamplingRatio)
	obj.Maybe("prereqOf", evt.PrereqOf.IsDefined()).String(evt.PrereqOf.StringValue())
	if evt.Reason.GetKind() != "" {
		obj.Name("reason")
		evt.Reason.WriteToJSONWriter(w)
	}

	obj.End()
}

func (ef eventOutputFormatter) writeMigrationOpEvent(w *jwriter.Writer, evt MigrationOpEventData) {
	obj := w.Object()

	obj.Name("kind").String("migration_op")
	obj.Name("creationDate").Float64(float64(evt.CreationDate))
	obj.Name("operation").String(string(evt.Op))
	writeSamplingRatio(&obj, evt.SamplingRatio)
	writeContextKeys(&obj, &evt.Context.context)

	evaluationObj := obj.Name("evaluation").Object()
	evaluationObj.Name("key").String(evt.FlagKey)
	evaluationObj.Maybe("version", evt.Version.IsDefined()).Int(evt.Version.IntValue())
	evaluationObj.Maybe("variation", evt.Evaluation.VariationIndex.IsDefined()).Int(evt.Evaluation.VariationIndex.IntValue())
	evaluationObj.Name("value")
	evt.Evaluation.Value.WriteToJSONWriter(w)
	evaluationObj.Name("default").String(string(evt.Default))
	if evt.Evaluation.Reason.GetKind() != "" {
		evaluationObj.Name("reason")
		evt.Evaluation.Reason.WriteToJSONWriter(w)
	}
	evaluationObj.End()

	measurementsArr := obj.Name("measurements").Array()

	if len(evt.Invoked) > 0 {
		invokedObj := measurementsArr.Object()
		invokedObj.Name("key").String("invoked")
		valuesObj := invokedObj.Name("values").Object()
		for origin := range evt.Invoked {
			valuesObj.Name(string(origin)).Bool(true)
		}
		valuesObj.End()
		invokedObj.End()
	}

	if evt.ConsistencyCheck != nil {
		consistentObj := measurementsArr.Object()
		consistentObj.Name("key").String("consistent")
		consistentObj.Name("value").Bool(evt.ConsistencyCheck.Consistent())
		if evt.ConsistencyCheck.SamplingRatio() != 1 {
			consistentObj.Name("samplingRatio").Int(evt.ConsistencyCheck.SamplingRatio())
		}
		consistentObj.End()
	}

	if len(evt.Latency) > 0 {
		latencyObj := measurementsArr.Object()
		latencyObj.Name("key").String("latency_ms")
		valuesObj := latencyObj.Name("values").Object()
		for origin, latencyMs := range evt.Latency {
			valuesObj.Name(string(origin)).Int(latencyMs)
		}
		valuesObj.End()
		latencyObj.End()
	}

	if len(evt.Error) > 0 {
		errorObj := measurementsArr.Object()
		errorObj.Name("key").String("error")
		valuesObj := errorObj.Name("values").Object()
		for origin := range evt.Error {
			valuesObj.Name(string(origin)).Bool(true)
		}
		valuesObj.End()
		errorObj.End()
	}

	measurementsArr.End()
	obj.End()
}

// Transforms the summary data into the format used for the "summary" event.
func (ef eventOutputFormatter) writeSummaryEvent(w *jwriter.Writer, snapshot eventSummary) {
	obj := w.Object()

	obj.Name("kind").String("summary")
	obj.Name("startDate").Float64(float64(snapshot.startDate))
	obj.Name("endDate").Float64(float64(snapshot.endDate))

	flagsObj := obj.Name("features").Object()

	for flagKey, flag := range snapshot.flags {
		flagObj := flagsObj.Name(flagKey).Object()

		flagObj.Name("default")
		flag.defaultValue.WriteToJSONWriter(w)

		contextKindsArr := flagObj.Name("contextKinds").Array()
		for kind := range flag.contextKinds {
			contextKindsArr.String(string(kind))
		}
		contextKindsArr.End()

		countersArr := flagObj.Name("counters").Array()
		for counterKey, counterValue := range flag.counters {
			counterObj := countersArr.Object()
			counterObj.Maybe("variation", counterKey.variation.IsDefined()).Int(counterKey.variation.IntValue())
			if counterKey.version.IsDefined() {
				counterObj.Name("version").Int(counterKey.version.IntValue())
			} else {
				counterObj.Name("unknown").Bool(true)
			}
			counterObj.Name("value")
			counterValue.flagValue.WriteToJSONWriter(w)
			counterObj.Name("count").Int(counterValue.count)
			counterObj.End()
		}
		countersArr.End()

		flagObj.End()
	}

	flagsObj.End()
	obj.End()
}

func writeContextKeys(obj *jwriter.ObjectState, c *ldcontext.Context) {
	keysObj := obj.Name("contextKeys").Object()
	for i := 0; i < c.IndividualContextCount(); i++ {
		if ic := c.IndividualContextByIndex(i); ic.IsDefined() {
			keysObj.Name(string(ic.Kind())).String(ic.Key())
		}
	}
	keysObj.End()
}

// A sampling ratio of 1 is the default and does not need to be transmitted. Zero, however, is
// meaningful and must be included.
func writeSamplingRatio(obj *jwriter.ObjectState, ratio ldvalue.OptionalInt) {
	if value, ok := ratio.Get(); ok && value != 1 {
		obj.Name("samplingRatio").Int(value)
	}
}
