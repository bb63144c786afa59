package checkout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
)

func orderEventPayload(o *domain.Order) ([]byte, error) {
	payload := map[string]any{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"items":        o.Items,
		"totals":       o.Totals,
		"status":       o.Status,
		"created_at":   time.Now(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}
	return data, nil
}
