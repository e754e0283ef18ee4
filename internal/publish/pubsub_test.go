package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/stridewatch/stridewatch/internal/catalog"
)

func newTestServer(t *testing.T) (*pstest.Server, []option.ClientOption) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, []option.ClientOption{option.WithGRPCConn(conn)}
}

func TestNewPubSubRequiresExistingTopic(t *testing.T) {
	t.Parallel()

	_, opts := newTestServer(t)
	ctx := context.Background()

	_, err := NewPubSub(ctx, Config{Project: "test-project", Topic: "missing"}, opts...)
	require.Error(t, err)
}

func TestPublishDeliversObservation(t *testing.T) {
	t.Parallel()

	srv, opts := newTestServer(t)
	ctx := context.Background()

	// The bootstrap client gets its own connection: pubsub.Client.Close closes
	// the conn passed via WithGRPCConn, which would break the publisher's conn.
	bootConn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	bootstrap, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(bootConn))
	require.NoError(t, err)
	_, err = bootstrap.CreateTopic(ctx, "price-changes")
	require.NoError(t, err)
	require.NoError(t, bootstrap.Close())

	pub, err := NewPubSub(ctx, Config{Project: "test-project", Topic: "price-changes"}, opts...)
	require.NoError(t, err)
	defer func() { _ = pub.Close() }()

	obs := catalog.PriceObservation{
		SizeID:          "PROD-AAAA0000_DEFAULT_BLACK_9",
		CaptureTime:     time.Unix(1756700000, 0).UTC(),
		Available:       true,
		Price:           "215",
		OriginalPrice:   "220",
		DiscountPercent: "2",
		ChangeType:      "price,discount_percent",
	}
	id, err := pub.Publish(ctx, obs)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "PROD-AAAA0000_DEFAULT_BLACK_9", msgs[0].Attributes["size_id"])
	require.Equal(t, "price,discount_percent", msgs[0].Attributes["change_type"])

	var decoded catalog.PriceObservation
	require.NoError(t, json.Unmarshal(msgs[0].Data, &decoded))
	require.Equal(t, obs.SizeID, decoded.SizeID)
	require.Equal(t, obs.Price, decoded.Price)
}
