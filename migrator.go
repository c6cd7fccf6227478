package ldclient

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldmigration"
	"github.com/launchdarkly/go-server-sdk-core/interfaces"
)

type migratorImpl struct {
	client             MigrationCapableClient
	readExecutionOrder ExecutionOrder

	readConfig  migrationConfig
	writeConfig migrationConfig

	measureLatency bool
	measureErrors  bool
}

func (m migratorImpl) ValidateRead(
	key string, context ldcontext.Context, defaultStage ldmigration.Stage, payload interface{},
) MigrationReadResult {
	stage, tracker, err := m.client.MigrationVariation(key, context, defaultStage)
	if err != nil {
		m.client.Loggers().Error(err)
	}
	tracker.Operation(ldmigration.Read)

	oldExecutor := m.newExecutor(ldmigration.Old, m.readConfig.old, tracker)
	newExecutor := m.newExecutor(ldmigration.New, m.readConfig.new, tracker)

	var readResult MigrationReadResult

	switch stage {
	case ldmigration.Off, ldmigration.DualWrite:
		readResult.MigrationResult = oldExecutor.exec(payload)
	case ldmigration.Shadow:
		authoritativeResult, _ := m.runBoth(
			payload, oldExecutor, newExecutor, m.readConfig.compare, m.readExecutionOrder, tracker)
		readResult.MigrationResult = authoritativeResult
	case ldmigration.Live:
		authoritativeResult, _ := m.runBoth(
			payload, newExecutor, oldExecutor, m.readConfig.compare, m.readExecutionOrder, tracker)
		readResult.MigrationResult = authoritativeResult
	case ldmigration.RampDown, ldmigration.Complete:
		readResult.MigrationResult = newExecutor.exec(payload)
	default:
		readResult.MigrationResult = MigrationResult{
			error: fmt.Errorf("invalid stage %s detected; cannot execute read", stage),
		}
		return readResult
	}

	m.sendOpEvent(tracker)

	return readResult
}

func (m migratorImpl) ValidateWrite(
	key string, context ldcontext.Context, defaultStage ldmigration.Stage, payload interface{},
) MigrationWriteResult {
	stage, tracker, err := m.client.MigrationVariation(key, context, defaultStage)
	if err != nil {
		m.client.Loggers().Error(err)
	}
	tracker.Operation(ldmigration.Write)

	oldExecutor := m.newExecutor(ldmigration.Old, m.writeConfig.old, tracker)
	newExecutor := m.newExecutor(ldmigration.New, m.writeConfig.new, tracker)

	var writeResult MigrationWriteResult

	switch stage {
	case ldmigration.Off:
		writeResult = NewMigrationWriteResult(oldExecutor.exec(payload), nil)
	case ldmigration.DualWrite, ldmigration.Shadow:
		writeResult = m.runWrites(payload, oldExecutor, newExecutor)
	case ldmigration.Live, ldmigration.RampDown:
		writeResult = m.runWrites(payload, newExecutor, oldExecutor)
	case ldmigration.Complete:
		writeResult = NewMigrationWriteResult(newExecutor.exec(payload), nil)
	default:
		return MigrationWriteResult{
			authoritative: MigrationResult{
				error: fmt.Errorf("invalid stage %s detected; cannot execute write", stage),
			},
		}
	}

	m.sendOpEvent(tracker)

	return writeResult
}

// runWrites executes the authoritative write, and only proceeds to the non-authoritative write if
// the authoritative write succeeded.
func (m migratorImpl) runWrites(
	payload interface{},
	authoritative, nonAuthoritative migrationExecutor,
) MigrationWriteResult {
	authoritativeResult := authoritative.exec(payload)
	if !authoritativeResult.IsSuccess() {
		return NewMigrationWriteResult(authoritativeResult, nil)
	}

	nonAuthoritativeResult := nonAuthoritative.exec(payload)
	return NewMigrationWriteResult(authoritativeResult, &nonAuthoritativeResult)
}

func (m migratorImpl) runBoth(
	payload interface{},
	authoritative, nonAuthoritative migrationExecutor,
	comparison *MigrationComparisonFn,
	executionOrder ExecutionOrder,
	tracker interfaces.LDMigrationOpTracker,
) (MigrationResult, MigrationResult) {
	var authoritativeResult, nonAuthoritativeResult MigrationResult

	switch {
	case executionOrder == Concurrently:
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			authoritativeResult = authoritative.exec(payload)
		}()

		go func() {
			defer wg.Done()
			nonAuthoritativeResult = nonAuthoritative.exec(payload)
		}()

		wg.Wait()
	case executionOrder == Randomized && rand.Float32() > 0.5: //nolint:gosec // doesn't need cryptographic security
		nonAuthoritativeResult = nonAuthoritative.exec(payload)
		authoritativeResult = authoritative.exec(payload)
	default:
		authoritativeResult = authoritative.exec(payload)
		nonAuthoritativeResult = nonAuthoritative.exec(payload)
	}

	if comparison != nil && authoritativeResult.IsSuccess() && nonAuthoritativeResult.IsSuccess() {
		oldResult, newResult := authoritativeResult, nonAuthoritativeResult
		if oldResult.GetOrigin() != ldmigration.Old {
			oldResult, newResult = newResult, oldResult
		}
		tracker.TrackConsistency((*comparison)(oldResult.GetResult(), newResult.GetResult()))
	}

	return authoritativeResult, nonAuthoritativeResult
}

func (m migratorImpl) newExecutor(
	origin ldmigration.Origin, impl MigrationImplFn, tracker interfaces.LDMigrationOpTracker,
) migrationExecutor {
	return migrationExecutor{
		origin:         origin,
		impl:           impl,
		tracker:        tracker,
		measureLatency: m.measureLatency,
		measureErrors:  m.measureErrors,
	}
}

func (m migratorImpl) sendOpEvent(tracker interfaces.LDMigrationOpTracker) {
	event, err := tracker.Build()
	if err != nil {
		m.client.Loggers().Errorf("migration op event was not sent; %v", err)
		return
	}
	if err := m.client.TrackMigrationOp(*event); err != nil {
		m.client.Loggers().Errorf("migration op event was not sent; %v", err)
	}
}

type migrationExecutor struct {
	origin         ldmigration.Origin
	impl           MigrationImplFn
	tracker        interfaces.LDMigrationOpTracker
	measureLatency bool
	measureErrors  bool
}

func (e migrationExecutor) exec(payload interface{}) MigrationResult {
	e.tracker.TrackInvoked(e.origin)

	start := time.Now()
	result, err := e.impl(payload)

	if e.measureLatency {
		e.tracker.TrackLatency(e.origin, time.Since(start))
	}

	if err != nil {
		if e.measureErrors {
			e.tracker.TrackError(e.origin)
		}
		return NewErrorMigrationResult(e.origin, err)
	}

	return NewSuccessfulMigrationResult(e.origin, result)
}
