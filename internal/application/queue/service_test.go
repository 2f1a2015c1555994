package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/application/queue"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// fakeRepo emula el índice único sobre idempotency_hash: insertar un hash
// repetido devuelve el id existente.
type fakeRepo struct {
	items []*entity.WorkItem
}

func (r *fakeRepo) Insert(item *entity.WorkItem) (int64, error) {
	for _, it := range r.items {
		if it.IdempotencyHash == item.IdempotencyHash {
			return it.ID, nil
		}
	}
	item.ID = int64(len(r.items) + 1)
	r.items = append(r.items, item)
	return item.ID, nil
}

func TestEnqueue_CompletaDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := queue.NewService(repo)

	id, err := svc.Enqueue("consignments", 42, "consignment.retry_upload",
		map[string]any{"session_id": "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, repo.items, 1)
	item := repo.items[0]
	assert.NotEmpty(t, item.TraceID, "cada trabajo lleva su trace id")
	assert.NotEmpty(t, item.IdempotencyHash)
	assert.Equal(t, entity.WorkItemPending, item.Status)
	assert.Equal(t, entity.WorkItemMaxAttempts, item.MaxAttempts)
	assert.Equal(t, entity.WorkItemDefaultPriority, item.Priority)
}

func TestEnqueue_RepetidoDevuelveMismaFila(t *testing.T) {
	repo := &fakeRepo{}
	svc := queue.NewService(repo)

	id1, err := svc.Enqueue("consignments", 42, "consignment.retry_upload",
		map[string]any{"session_id": "sess-1"})
	require.NoError(t, err)
	id2, err := svc.Enqueue("consignments", 42, "consignment.retry_upload",
		map[string]any{"session_id": "sess-1"})
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "encolar dos veces el mismo trabajo es no-op")
	assert.Len(t, repo.items, 1, "no debe haber fila duplicada")
}

func TestEnqueue_PayloadDistintoEsOtroTrabajo(t *testing.T) {
	repo := &fakeRepo{}
	svc := queue.NewService(repo)

	id1, err := svc.Enqueue("consignments", 42, "consignment.retry_upload",
		map[string]any{"session_id": "sess-1"})
	require.NoError(t, err)
	id2, err := svc.Enqueue("consignments", 42, "consignment.retry_upload",
		map[string]any{"session_id": "sess-2"})
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Len(t, repo.items, 2)
}

func TestEnqueue_HashEstablePorOrdenDeClaves(t *testing.T) {
	repo := &fakeRepo{}
	svc := queue.NewService(repo)

	// encoding/json ordena las claves de los maps: payloads lógicamente
	// iguales producen el mismo hash aunque se construyan en otro orden.
	_, err := svc.Enqueue("q", 1, "op", map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	_, err = svc.Enqueue("q", 1, "op", map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)

	assert.Len(t, repo.items, 1)
}
