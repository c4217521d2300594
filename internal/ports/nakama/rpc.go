package nakama

import (
	"context"
	"database/sql"
	"errors"

	"settlers/internal/ports/wire"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var errNoMatchID = runtime.NewError("match_id is required", 3) // INVALID_ARGUMENT

// matchSignaler is the part of runtime.NakamaModule the rejoin RPC needs.
type matchSignaler interface {
	MatchSignal(ctx context.Context, id string, data string) (string, error)
}

// rpcRejoinTicket asks a running match for a ticket the caller can present
// in the join metadata under "ticket".
//
// Payload: {"match_id": "<id>"}
// Returns: a wire ticket message, or a wire error message when the match
// refuses.
func rpcRejoinTicket(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return requestTicket(ctx, logger, nk, payload)
}

func requestTicket(ctx context.Context, logger runtime.Logger, nk matchSignaler, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	req := &structpb.Struct{}
	if err := protojson.Unmarshal([]byte(payload), req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	matchID := req.GetFields()["match_id"].GetStringValue()
	if matchID == "" {
		return "", errNoMatchID
	}

	signal, err := structpb.NewStruct(map[string]interface{}{
		"type":    wire.TypeRejoin,
		"user_id": userID,
	})
	if err != nil {
		return "", err
	}
	data, err := protojson.Marshal(signal)
	if err != nil {
		return "", err
	}

	reply, err := nk.MatchSignal(ctx, matchID, string(data))
	if err != nil {
		logger.Warn("rpcRejoinTicket [User:%s]: MatchSignal to %s failed: %v", userID, matchID, err)
		return "", err
	}
	if reply == "" {
		return "", errors.New("match did not answer")
	}
	return reply, nil
}
