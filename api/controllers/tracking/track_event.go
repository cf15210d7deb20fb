package tracking

import (
	"context"
	"net/http"

	"github.com/angelmondragon/rentalcrm-backend/api/middleware"
	"github.com/angelmondragon/rentalcrm-backend/api/responses"
	"github.com/angelmondragon/rentalcrm-backend/api/validators"
	internaltracking "github.com/angelmondragon/rentalcrm-backend/internal/tracking"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
	"github.com/angelmondragon/rentalcrm-backend/pkg/types"
)

const (
	trackedMessage = "Event tracked successfully"
	queuedMessage  = "Event queued for processing"
)

// EventProcessor handles an envelope inline.
type EventProcessor interface {
	ProcessRaw(ctx context.Context, body []byte) internaltracking.Result
}

// EventPublisher hands an envelope to the tracking worker.
type EventPublisher interface {
	Publish(ctx context.Context, env internaltracking.Envelope) (string, error)
}

// TrackEvent is the storefront ingestion endpoint. With a publisher the
// envelope is queued for the worker; otherwise it is processed inline. Every
// failure is answered with a flat {success:false,error} body and status 500.
func TrackEvent(processor EventProcessor, publisher EventPublisher, maxBodyBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if processor == nil && publisher == nil {
			writeFailure(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event tracking unavailable"))
			return
		}

		body, err := validators.ReadBody(w, r, maxBodyBytes)
		if err != nil {
			writeFailure(ctx, logg, w, err)
			return
		}
		if err := validators.ValidateTrackEnvelope(body); err != nil {
			writeFailure(ctx, logg, w, err)
			return
		}

		if logg != nil {
			if userID := middleware.UserIDFromContext(ctx); userID != "" {
				ctx = logg.WithUserID(ctx, userID)
			}
		}

		if publisher != nil {
			env, err := internaltracking.DecodeEnvelope(body)
			if err != nil {
				writeFailure(ctx, logg, w, err)
				return
			}
			messageID, err := publisher.Publish(ctx, env)
			if err != nil {
				writeFailure(ctx, logg, w, err)
				return
			}
			if logg != nil {
				logCtx := logg.WithEventType(logg.WithMessageID(ctx, messageID), env.Type())
				logg.Debug(logCtx, "tracking.event.queued")
			}
			responses.WriteTrack(w, http.StatusOK, types.TrackResult{Success: true, Message: queuedMessage})
			return
		}

		res := processor.ProcessRaw(ctx, body)
		if !res.Success {
			responses.WriteTrack(w, http.StatusInternalServerError, types.TrackResult{Success: false, Error: res.Error})
			return
		}
		responses.WriteTrack(w, http.StatusOK, types.TrackResult{
			Success:   true,
			ContactID: res.ContactID,
			Message:   trackedMessage,
		})
	}
}

func writeFailure(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	message := pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).PublicMessage
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		message = typed.Message()
	}
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"code":  string(pkgerrors.CodeOf(err)),
			"error": err.Error(),
		})
		logg.Warn(logCtx, "tracking.event.rejected")
	}
	responses.WriteTrack(w, http.StatusInternalServerError, types.TrackResult{Success: false, Error: message})
}
