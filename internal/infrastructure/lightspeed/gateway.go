package lightspeed

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/application/upload"
)

// Gateway adapta el cliente Lightspeed al puerto del orquestador.
type Gateway struct {
	client *Client
}

var _ upload.ConsignmentGateway = (*Gateway)(nil)

// NewGateway construye el adaptador.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) CreateConsignment(ctx context.Context, sourceOutletID, destOutletID, reference string) upload.GatewayResult {
	res := g.client.CreateConsignment(ctx, CreateConsignmentInput{
		SourceOutletID:      sourceOutletID,
		DestinationOutletID: destOutletID,
		Reference:           reference,
	})
	out := toGatewayResult(res)
	if res.OK {
		out.ConsignmentID = ConsignmentID(res)
		out.Reference = ConsignmentReference(res)
	}
	return out
}

func (g *Gateway) AddProduct(ctx context.Context, consignmentID, productID string, count int) upload.GatewayResult {
	return toGatewayResult(g.client.AddConsignmentProduct(ctx, consignmentID, productID, count))
}

func (g *Gateway) MarkSent(ctx context.Context, consignmentID string) upload.GatewayResult {
	return toGatewayResult(g.client.MarkConsignmentSent(ctx, consignmentID))
}

func toGatewayResult(res *Result) upload.GatewayResult {
	return upload.GatewayResult{
		OK:     res.OK,
		Status: res.Status,
		Raw:    res.Raw,
		Err:    res.Err,
	}
}
