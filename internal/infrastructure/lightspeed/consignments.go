package lightspeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Estados de consignment en Lightspeed.
const (
	ConsignmentStatusOpen = "OPEN"
	ConsignmentStatusSent = "SENT"
)

// consignmentTypeStock: traslado entre outlets (vs SUPPLIER para órdenes de compra).
const consignmentTypeStock = "STOCK"

// CreateConsignmentInput datos para crear el consignment espejo de un traslado.
type CreateConsignmentInput struct {
	SourceOutletID      string
	DestinationOutletID string
	Reference           string // public_id del traslado
}

// CreateConsignment crea el consignment remoto en estado OPEN.
func (c *Client) CreateConsignment(ctx context.Context, in CreateConsignmentInput) *Result {
	payload := map[string]any{
		"type":                  consignmentTypeStock,
		"status":                ConsignmentStatusOpen,
		"source_outlet_id":      in.SourceOutletID,
		"destination_outlet_id": in.DestinationOutletID,
		"reference":             in.Reference,
	}
	return c.Do(ctx, http.MethodPost, "consignments", payload)
}

// AddConsignmentProduct agrega una línea de producto al consignment.
func (c *Client) AddConsignmentProduct(ctx context.Context, consignmentID, productID string, count int) *Result {
	payload := map[string]any{
		"consignment_id": consignmentID,
		"product_id":     productID,
		"count":          count,
	}
	return c.Do(ctx, http.MethodPost, "consignment_products", payload)
}

// MarkConsignmentSent marca el consignment como SENT.
func (c *Client) MarkConsignmentSent(ctx context.Context, consignmentID string) *Result {
	payload := map[string]any{"status": ConsignmentStatusSent}
	return c.Do(ctx, http.MethodPatch, "consignments/"+url.PathEscape(consignmentID), payload)
}

// ConsignmentID extrae el id del body de creación. Lightspeed a veces anida
// la entidad en body.data.
func ConsignmentID(res *Result) string {
	if res == nil || res.Body == nil {
		return ""
	}
	if id, ok := res.Body["id"].(string); ok {
		return id
	}
	if data, ok := res.Body["data"].(map[string]any); ok {
		if id, ok := data["id"].(string); ok {
			return id
		}
	}
	return ""
}

// ConsignmentReference extrae la referencia devuelta (número Vend), si vino.
func ConsignmentReference(res *Result) string {
	if res == nil || res.Body == nil {
		return ""
	}
	if ref, ok := res.Body["reference"].(string); ok {
		return ref
	}
	if data, ok := res.Body["data"].(map[string]any); ok {
		if ref, ok := data["reference"].(string); ok {
			return ref
		}
	}
	return ""
}

// ConsignmentURL devuelve la URL de la UI de Lightspeed para un consignment.
func (c *Client) ConsignmentURL(consignmentID string) string {
	uiBase := strings.Replace(c.cfg.BaseURL, "/api/2.0", "/app/2.0", 1)
	return fmt.Sprintf("%s/consignments/%s", uiBase, url.PathEscape(consignmentID))
}
