package queue

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rush86999/atomic-scheduler/internal/rest"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/user"
)

const maxEventBodyBytes = 1 << 20

type PublishedDTO struct {
	MessageId string `json:"messageId,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type ProducerHandler struct {
	producer *Producer
}

func NewProducerHandler(producer *Producer) *ProducerHandler {
	return &ProducerHandler{producer: producer}
}

func (h *ProducerHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Unable to read request body", err.Error())
		return
	}
	var e event.Event
	if err := json.Unmarshal(body, &e); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
		return
	}
	// a caller identified by the middleware may only queue its own events
	if callerId, err := user.CurrentId(r.Context()); err == nil {
		if e.UserId == "" {
			e.UserId = callerId
		} else if e.UserId != callerId {
			rest.WriteError(w, http.StatusForbidden, "Event belongs to another user", "")
			return
		}
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = IdempotencyKey(body)
	}
	id, published, err := h.producer.Publish(r.Context(), key, e)
	if err != nil {
		if IsPoison(err) {
			rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
			return
		}
		rest.WriteError(w, http.StatusServiceUnavailable, "Unable to queue event", err.Error())
		return
	}

	status := http.StatusAccepted
	if !published {
		status = http.StatusOK
	}
	rest.WriteJSON(w, status, PublishedDTO{MessageId: id, Duplicate: !published})
}
