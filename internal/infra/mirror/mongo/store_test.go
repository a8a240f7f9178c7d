package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
	"go.uber.org/zap/zaptest"

	appmirror "github.com/bryanwahyu/vc-analyst/internal/application/mirror"
	"github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("profile upsert sets only provided fields", func(mt *mtest.T) {
		s := New(mt.Client, "vc")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := s.UpsertProfile(context.Background(), mirror.Profile{OwnerID: "u1", Email: "ada@example.com", LastSyncedAt: at})
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		assert.Equal(mt, "users", evt.Command.Lookup("update").StringValue())
		assert.True(mt, evt.Command.Lookup("updates", "0", "upsert").Boolean())
		assert.Equal(mt, "u1", evt.Command.Lookup("updates", "0", "q", "_id").StringValue())
		assert.Equal(mt, "ada@example.com", evt.Command.Lookup("updates", "0", "u", "$set", "email").StringValue())
		_, err = evt.Command.LookupErr("updates", "0", "u", "$set", "display_name")
		assert.Error(mt, err)
	})

	mt.Run("report write replaces by composite key", func(mt *mtest.T) {
		s := New(mt.Client, "vc")
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := s.PutReport(context.Background(), mirror.Report{
			OwnerID:  "u1",
			ReportID: "42",
			Title:    "Meal kits",
			Result:   map[string]any{"tam2025": "$20B"},
			SyncedAt: at,
			Source:   mirror.Source,
		})
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "analyses", evt.Command.Lookup("update").StringValue())
		assert.Equal(mt, "u1/42", evt.Command.Lookup("updates", "0", "q", "_id").StringValue())
		assert.Equal(mt, "vc-analyst-backend", evt.Command.Lookup("updates", "0", "u", "source").StringValue())
		assert.Equal(mt, "$20B", evt.Command.Lookup("updates", "0", "u", "result", "tam2025").StringValue())
	})

	mt.Run("rejected write is not unavailable", func(mt *mtest.T) {
		s := New(mt.Client, "vc")
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized on vc",
		}))

		err := s.PutReport(context.Background(), mirror.Report{OwnerID: "u1", ReportID: "42"})
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, mirror.ErrUnavailable)
	})
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(mongo.ErrClientDisconnected), mirror.ErrUnavailable)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), mirror.ErrUnavailable)
	assert.ErrorIs(t, classify(topology.ErrServerSelectionTimeout), mirror.ErrUnavailable)
	assert.ErrorIs(t, classify(topology.ServerSelectionError{Wrapped: errors.New("connection refused")}), mirror.ErrUnavailable)

	rejected := errors.New("document too large")
	assert.Equal(t, rejected, classify(rejected))
}

func TestOpenWithoutURI(t *testing.T) {
	_, err := Open(context.Background(), "", "vc", time.Second)
	assert.ErrorIs(t, err, mirror.ErrUnavailable)
}

// closedPortClient talks to a port nothing listens on. Connect is lazy, so
// the failure shows up on the first operation as a server selection error.
func closedPortClient(t *testing.T) *mongo.Client {
	opts := options.Client().ApplyURI("mongodb://127.0.0.1:1").SetServerSelectionTimeout(300 * time.Millisecond)
	client, err := mongo.Connect(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func TestServerGoneIsUnavailable(t *testing.T) {
	s := New(closedPortClient(t), "vc")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.PutReport(ctx, mirror.Report{OwnerID: "u1", ReportID: "42"})
	assert.ErrorIs(t, err, mirror.ErrUnavailable)

	err = s.UpsertProfile(ctx, mirror.Profile{OwnerID: "u1", LastSyncedAt: time.Now()})
	assert.ErrorIs(t, err, mirror.ErrUnavailable)
}

func TestServerGoneSyncIsSkipped(t *testing.T) {
	s := New(closedPortClient(t), "vc")
	coord := appmirror.NewCoordinator(s, nil, 2*time.Second, zaptest.NewLogger(t))

	r := &report.Report{ID: "42", OwnerID: "u1", Title: "Meal kits", Summary: "s", Result: report.Payload{}}
	out := coord.Sync(context.Background(), r, report.Owner{ID: "u1", Email: "ada@example.com"})
	assert.Equal(t, mirror.Skipped(mirror.ReasonStoreUnavailable), out)
}

func TestOpenClosedPort(t *testing.T) {
	_, err := Open(context.Background(), "mongodb://127.0.0.1:1", "vc", 300*time.Millisecond)
	assert.ErrorIs(t, err, mirror.ErrUnavailable)
}
