package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRequestDataRoundTrip(t *testing.T) {
	require.Nil(t, GetRequestData(context.Background()))

	uid := uuid.New()
	ctx := WithRequestData(context.Background(), &RequestData{UserID: uid})
	rd := GetRequestData(ctx)
	require.NotNil(t, rd)
	require.Equal(t, uid, rd.UserID)
}

func TestTraceDataMissing(t *testing.T) {
	require.Nil(t, GetTraceData(context.Background()))
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t", RequestID: "r"})
	require.Equal(t, "t", GetTraceData(ctx).TraceID)
}
