package ldclient

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldmigration"
	"github.com/launchdarkly/go-sdk-common/v3/ldreason"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-server-sdk-core/internal"
	"github.com/launchdarkly/go-server-sdk-core/ldevents"
	"github.com/launchdarkly/go-server-sdk-core/ldmodel"
)

// MigrationOpTracker is used to collect migration related measurements. These measurements will be
// sent upstream to LaunchDarkly servers and used to enhance the visibility of in progress
// migrations.
type MigrationOpTracker struct {
	flag             *ldmodel.FeatureFlag
	defaultStage     ldmigration.Stage
	op               *ldmigration.Operation
	context          ldcontext.Context
	evaluation       ldreason.EvaluationDetail
	consistencyCheck *ldmigration.ConsistencyCheck
	errors           map[ldmigration.Origin]bool
	invoked          map[ldmigration.Origin]bool
	latencyMs        map[ldmigration.Origin]int

	lock sync.Mutex
}

// NewMigrationOpTracker creates a tracker instance that can be used to capture migration related
// measurement data.
//
// By default, the MigrationOpTracker is invalid. You must set an operation using
// [MigrationOpTracker.Operation] before the tracker can generate valid event data using
// [MigrationOpTracker.Build].
func NewMigrationOpTracker(
	flag *ldmodel.FeatureFlag,
	context ldcontext.Context,
	detail ldreason.EvaluationDetail,
	defaultStage ldmigration.Stage,
) *MigrationOpTracker {
	return &MigrationOpTracker{
		flag:         flag,
		defaultStage: defaultStage,
		context:      context,
		evaluation:   detail,
		errors:       make(map[ldmigration.Origin]bool),
		invoked:      make(map[ldmigration.Origin]bool),
		latencyMs:    make(map[ldmigration.Origin]int),
	}
}

// Operation sets the migration related operation associated with these tracking measurements.
func (t *MigrationOpTracker) Operation(op ldmigration.Operation) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.op = &op
}

// TrackInvoked allows recording which origins were called during a migration.
func (t *MigrationOpTracker) TrackInvoked(origin ldmigration.Origin) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.invoked[origin] = true
}

// TrackConsistency allows recording the result of a consistency check.
//
// This method is subject to the consistency check sampling configured on the migration flag. If the
// check is not sampled, the result is discarded.
func (t *MigrationOpTracker) TrackConsistency(isConsistent bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	checkRatio := 1
	if t.flag != nil && t.flag.Migration != nil {
		checkRatio = t.flag.Migration.CheckRatio.OrElse(1)
	}

	if internal.ShouldSample(checkRatio) {
		t.consistencyCheck = ldmigration.NewConsistencyCheck(isConsistent, checkRatio)
	}
}

// TrackError allows recording that an error occurred during the operation.
func (t *MigrationOpTracker) TrackError(origin ldmigration.Origin) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.errors[origin] = true
}

// TrackLatency allows tracking the recorded latency for an individual operation.
func (t *MigrationOpTracker) TrackLatency(origin ldmigration.Origin, duration time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.latencyMs[origin] = int(duration.Milliseconds())
}

// Build creates an instance of [ldevents.MigrationOpEventData]. This event data can be provided to
// the [LDClient.TrackMigrationOp] method to relay this metric information upstream to LaunchDarkly
// services.
func (t *MigrationOpTracker) Build() (*ldevents.MigrationOpEventData, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.flag == nil || len(t.flag.Key) == 0 {
		return nil, errors.New("migration operation cannot contain an empty flag key")
	}

	if t.op == nil {
		return nil, errors.New("migration operation not specified")
	}

	if err := t.context.Err(); err != nil {
		return nil, fmt.Errorf("invalid context given; %s", err)
	}

	return &ldevents.MigrationOpEventData{
		BaseEvent: ldevents.BaseEvent{
			CreationDate: ldtime.UnixMillisNow(),
			Context:      ldevents.Context(t.context),
		},
		Op:               *t.op,
		FlagKey:          t.flag.Key,
		Default:          t.defaultStage,
		Evaluation:       t.evaluation,
		SamplingRatio:    t.flag.SamplingRatio,
		Version:          ldvalue.NewOptionalInt(t.flag.Version),
		ConsistencyCheck: t.consistencyCheck,
		Error:            copyOriginMap(t.errors),
		Invoked:          copyOriginMap(t.invoked),
		Latency:          copyLatencyMap(t.latencyMs),
	}, nil
}

func copyOriginMap(src map[ldmigration.Origin]bool) map[ldmigration.Origin]bool {
	dst := make(map[ldmigration.Origin]bool, len(src))
	for origin, value := range src {
		dst[origin] = value
	}
	return dst
}

func copyLatencyMap(src map[ldmigration.Origin]int) map[ldmigration.Origin]int {
	dst := make(map[ldmigration.Origin]int, len(src))
	for origin, value := range src {
		dst[origin] = value
	}
	return dst
}
