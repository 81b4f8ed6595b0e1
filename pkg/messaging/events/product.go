// Package events holds the payloads published on product changes.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/shoppe/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
)

// Product is the product snapshot carried by created and updated events.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProductCreatedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	Product    Product                `json:"product"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e ProductCreatedEvent) Subject() string {
	return messaging.ProductsCreatedSubject
}

func (e ProductCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type ProductUpdatedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	Product    Product                `json:"product"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e ProductUpdatedEvent) Subject() string {
	return messaging.ProductsUpdatedSubject
}

func (e ProductUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type ProductDeletedEvent struct {
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
	ProductID  uuid.UUID              `json:"product_id"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e ProductDeletedEvent) Subject() string {
	return messaging.ProductsDeletedSubject
}

func (e ProductDeletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
