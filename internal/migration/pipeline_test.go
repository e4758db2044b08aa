package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthroughStep(from int, name string) Step {
	return Step{
		From: from,
		Name: name,
		Up: func(doc Document) (Document, error) {
			doc["trail"] = appendTrail(doc["trail"], name)
			return doc, nil
		},
		Down: func(doc Document) (Document, error) {
			return doc, nil
		},
		Validate: func(Document) error { return nil },
	}
}

func appendTrail(current any, name string) []any {
	trail, _ := current.([]any)
	return append(trail, name)
}

func TestPipelineMigrateNoOpAtCurrentVersion(t *testing.T) {
	pipeline := NewPipeline(2, nil)
	require.NoError(t, pipeline.Register(passthroughStep(0, "a")))
	require.NoError(t, pipeline.Register(passthroughStep(1, "b")))

	doc := Document{FieldSchemaVersion: float64(2), "payload": "kept"}
	migrated, result, err := pipeline.Migrate(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, result.NoOp())
	assert.Equal(t, "kept", migrated["payload"])
	assert.Nil(t, migrated["trail"])
}

func TestPipelineMigrateRunsStepsInOrder(t *testing.T) {
	pipeline := NewPipeline(2, nil)
	require.NoError(t, pipeline.Register(passthroughStep(1, "b")))
	require.NoError(t, pipeline.Register(passthroughStep(0, "a")))

	migrated, result, err := pipeline.Migrate(context.Background(), Document{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Applied)
	assert.Equal(t, 0, result.From)
	assert.Equal(t, 2, result.To)
	assert.Equal(t, []any{"a", "b"}, migrated["trail"])
	assert.Equal(t, 2, migrated.Version())

	again, result, err := pipeline.Migrate(context.Background(), migrated)
	require.NoError(t, err)
	assert.True(t, result.NoOp())
	assert.Equal(t, migrated, again)
}

func TestPipelineMissingStepFailsWithoutTouchingInput(t *testing.T) {
	pipeline := NewPipeline(3, nil)
	require.NoError(t, pipeline.Register(passthroughStep(0, "a")))
	require.NoError(t, pipeline.Register(passthroughStep(2, "c")))

	input := Document{"payload": "original"}
	migrated, _, err := pipeline.Migrate(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.ErrorIs(t, err, ErrNoMigrationPath)
	assert.Equal(t, Document{"payload": "original"}, migrated)
}

func TestPipelineFailedStepReturnsOriginalAndRollsBack(t *testing.T) {
	pipeline := NewPipeline(2, nil)
	downCalls := 0
	first := passthroughStep(0, "first")
	first.Down = func(doc Document) (Document, error) {
		downCalls++
		delete(doc, "trail")
		return doc, nil
	}
	require.NoError(t, pipeline.Register(first))
	require.NoError(t, pipeline.Register(Step{
		From:     1,
		Name:     "broken",
		Up:       func(Document) (Document, error) { return nil, errors.New("boom") },
		Down:     func(doc Document) (Document, error) { return doc, nil },
		Validate: func(Document) error { return nil },
	}))

	input := Document{"payload": "original"}
	migrated, result, err := pipeline.Migrate(context.Background(), input)
	require.Error(t, err)

	var migrationErr *MigrationError
	require.ErrorAs(t, err, &migrationErr)
	assert.Equal(t, "broken", migrationErr.FailedStep)
	assert.True(t, migrationErr.RolledBack())
	assert.Equal(t, 1, downCalls)
	assert.Equal(t, Document{"payload": "original"}, migrated)
	assert.Equal(t, []string{"first"}, result.Applied)
}

func TestPipelineFailureReturnsInputNotDownChainOutput(t *testing.T) {
	pipeline := NewPipeline(2, nil)
	first := passthroughStep(0, "first")
	first.Down = func(Document) (Document, error) {
		return Document{"payload": "lossy"}, nil
	}
	require.NoError(t, pipeline.Register(first))
	second := passthroughStep(1, "second")
	second.Up = func(Document) (Document, error) { return nil, errors.New("boom") }
	require.NoError(t, pipeline.Register(second))

	input := Document{"payload": "original", "nested": map[string]any{"kept": true}}
	migrated, _, err := pipeline.Migrate(context.Background(), input)

	var migrationErr *MigrationError
	require.ErrorAs(t, err, &migrationErr)
	assert.True(t, migrationErr.RolledBack())
	assert.Equal(t, Document{"payload": "original", "nested": map[string]any{"kept": true}}, migrated)
	assert.Equal(t, Document{"payload": "original", "nested": map[string]any{"kept": true}}, input)
}

func TestPipelineRollbackFailureIsAttached(t *testing.T) {
	pipeline := NewPipeline(2, nil)
	first := passthroughStep(0, "first")
	first.Down = func(Document) (Document, error) { return nil, errors.New("cannot undo") }
	require.NoError(t, pipeline.Register(first))
	second := passthroughStep(1, "second")
	second.Validate = func(Document) error { return errors.New("bad output") }
	require.NoError(t, pipeline.Register(second))

	_, _, err := pipeline.Migrate(context.Background(), Document{})
	var migrationErr *MigrationError
	require.ErrorAs(t, err, &migrationErr)
	assert.False(t, migrationErr.RolledBack())
	assert.Contains(t, err.Error(), "rollback failed")
	assert.Contains(t, err.Error(), "bad output")
}

func TestPipelineRecoversPanickingStep(t *testing.T) {
	pipeline := NewPipeline(1, nil)
	require.NoError(t, pipeline.Register(Step{
		From:     0,
		Name:     "panics",
		Up:       func(Document) (Document, error) { panic("unexpected") },
		Down:     func(doc Document) (Document, error) { return doc, nil },
		Validate: func(Document) error { return nil },
	}))

	_, _, err := pipeline.Migrate(context.Background(), Document{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestPipelineRejectsNewerStoredVersion(t *testing.T) {
	pipeline := NewPipeline(1, nil)
	_, _, err := pipeline.Migrate(context.Background(), Document{FieldSchemaVersion: float64(5)})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestPipelineRegisterValidation(t *testing.T) {
	pipeline := NewPipeline(1, nil)
	require.NoError(t, pipeline.Register(passthroughStep(0, "a")))

	assert.ErrorIs(t, pipeline.Register(passthroughStep(0, "again")), ErrInvalidStep)
	assert.ErrorIs(t, pipeline.Register(passthroughStep(-1, "negative")), ErrInvalidStep)
	incomplete := passthroughStep(1, "incomplete")
	incomplete.Down = nil
	assert.ErrorIs(t, pipeline.Register(incomplete), ErrInvalidStep)
	assert.Equal(t, []int{0}, pipeline.Versions())
}

func TestPipelineRollbackWalksDownChain(t *testing.T) {
	pipeline := NewPipeline(2, nil)
	require.NoError(t, pipeline.Register(passthroughStep(0, "a")))
	require.NoError(t, pipeline.Register(passthroughStep(1, "b")))

	rolled, err := pipeline.Rollback(context.Background(), Document{FieldSchemaVersion: float64(2)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, rolled.Version())

	_, err = pipeline.Rollback(context.Background(), Document{FieldSchemaVersion: float64(0)}, 1)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestPipelineHonoursCancelledContext(t *testing.T) {
	pipeline := NewPipeline(1, nil)
	require.NoError(t, pipeline.Register(passthroughStep(0, "a")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := pipeline.Migrate(ctx, Document{})
	assert.ErrorIs(t, err, context.Canceled)
}
