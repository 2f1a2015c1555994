package upload_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/application/queue"
	"github.com/jhoicas/Traslados-api/internal/application/upload"
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

type fakeTransferRepo struct {
	transfers map[int64]*entity.Transfer
}

func (r *fakeTransferRepo) GetByID(id int64) (*entity.Transfer, error) {
	t, ok := r.transfers[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTransferRepo) GetForUpdate(id int64) (*entity.Transfer, error) {
	return r.GetByID(id)
}

func (r *fakeTransferRepo) SetState(id int64, state string) error {
	t, ok := r.transfers[id]
	if !ok {
		return fmt.Errorf("traslado %d no existe", id)
	}
	t.State = state
	return nil
}

func (r *fakeTransferRepo) SetConsignment(id int64, consignmentID, vendNumber string) error {
	t, ok := r.transfers[id]
	if !ok || t.VendConsignmentID != "" {
		return fmt.Errorf("consignment ya fijado o traslado inexistente")
	}
	t.VendConsignmentID = consignmentID
	t.VendNumber = vendNumber
	t.State = entity.TransferStatePacking
	return nil
}

func (r *fakeTransferRepo) AppendNote(id int64, note string) error {
	t, ok := r.transfers[id]
	if !ok {
		return fmt.Errorf("traslado %d no existe", id)
	}
	if t.Notes == "" {
		t.Notes = note
	} else {
		t.Notes += "\n" + note
	}
	return nil
}

type fakeLineRepo struct {
	lines []*entity.TransferLine
}

func (r *fakeLineRepo) GetByTransferAndProduct(transferID int64, productID string) (*entity.TransferLine, error) {
	for _, l := range r.lines {
		if l.TransferID == transferID && l.ProductID == productID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLineRepo) SetQtySent(lineID int64, qty int) error {
	for _, l := range r.lines {
		if l.ID == lineID {
			l.QtySent = qty
			return nil
		}
	}
	return fmt.Errorf("línea %d no existe", lineID)
}

func (r *fakeLineRepo) ListPendingUpload(transferID int64) ([]*entity.TransferLine, error) {
	var out []*entity.TransferLine
	for _, l := range r.lines {
		if l.TransferID == transferID && l.QtySent > 0 && l.UploadState != entity.LineUploadUploaded {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLineRepo) SetUploadState(lineID int64, state string) error {
	for _, l := range r.lines {
		if l.ID == lineID {
			l.UploadState = state
			return nil
		}
	}
	return fmt.Errorf("línea %d no existe", lineID)
}

type fakeProgressRepo struct {
	rows    map[string]*entity.UploadProgress
	history []string // estados en orden de escritura
}

func progressKey(transferID int64, sessionID string) string {
	return fmt.Sprintf("%d|%s", transferID, sessionID)
}

func (r *fakeProgressRepo) Upsert(transferID int64, sessionID, status, message string, meta map[string]any) error {
	if r.rows == nil {
		r.rows = map[string]*entity.UploadProgress{}
	}
	r.rows[progressKey(transferID, sessionID)] = &entity.UploadProgress{
		TransferID: transferID,
		SessionID:  sessionID,
		Status:     status,
		Message:    message,
		Meta:       meta,
	}
	r.history = append(r.history, status)
	return nil
}

func (r *fakeProgressRepo) Get(transferID int64, sessionID string) (*entity.UploadProgress, error) {
	p, ok := r.rows[progressKey(transferID, sessionID)]
	if !ok {
		return nil, nil
	}
	return p, nil
}

// fakeTxRunner simula la atomicidad: toma un snapshot y lo restaura si fn falla.
type fakeTxRunner struct {
	transfers *fakeTransferRepo
	lines     *fakeLineRepo
	progress  *fakeProgressRepo
	runs      int
}

func (tx *fakeTxRunner) Run(ctx context.Context, fn func(
	transferRepo repository.TransferRepository,
	lineRepo repository.TransferLineRepository,
	progressRepo repository.UploadProgressRepository,
) error) error {
	tx.runs++
	snapTransfers := map[int64]*entity.Transfer{}
	for id, t := range tx.transfers.transfers {
		cp := *t
		snapTransfers[id] = &cp
	}
	snapLines := make([]*entity.TransferLine, 0, len(tx.lines.lines))
	for _, l := range tx.lines.lines {
		cp := *l
		snapLines = append(snapLines, &cp)
	}

	if err := fn(tx.transfers, tx.lines, tx.progress); err != nil {
		tx.transfers.transfers = snapTransfers
		tx.lines.lines = snapLines
		return err
	}
	return nil
}

// fakeGateway respuestas remotas programables.
type fakeGateway struct {
	createResult  upload.GatewayResult
	addResults    map[string]upload.GatewayResult // por vend_product_id; ausencia = OK
	markResult    upload.GatewayResult
	createCalls   int
	addCalls      []string
	markSentCalls int
}

func okResult() upload.GatewayResult {
	return upload.GatewayResult{OK: true, Status: 200}
}

func (g *fakeGateway) CreateConsignment(ctx context.Context, sourceOutletID, destOutletID, reference string) upload.GatewayResult {
	g.createCalls++
	return g.createResult
}

func (g *fakeGateway) AddProduct(ctx context.Context, consignmentID, productID string, count int) upload.GatewayResult {
	g.addCalls = append(g.addCalls, productID)
	if res, ok := g.addResults[productID]; ok {
		return res
	}
	return okResult()
}

func (g *fakeGateway) MarkSent(ctx context.Context, consignmentID string) upload.GatewayResult {
	g.markSentCalls++
	return g.markResult
}

type fakeWorkQueueRepo struct {
	items []*entity.WorkItem
}

func (r *fakeWorkQueueRepo) Insert(item *entity.WorkItem) (int64, error) {
	for _, it := range r.items {
		if it.IdempotencyHash == item.IdempotencyHash {
			return it.ID, nil
		}
	}
	item.ID = int64(len(r.items) + 1)
	r.items = append(r.items, item)
	return item.ID, nil
}

type fakeAuditRepo struct {
	events []*entity.AuditEvent
}

func (r *fakeAuditRepo) Append(ev *entity.AuditEvent) error {
	r.events = append(r.events, ev)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	transfers    *fakeTransferRepo
	lines        *fakeLineRepo
	progress     *fakeProgressRepo
	gateway      *fakeGateway
	workQueue    *fakeWorkQueueRepo
	audit        *fakeAuditRepo
	orchestrator *upload.Orchestrator
}

const (
	testTransferID = int64(42)
	testActorID    = "user-7"
	testSession    = "sess-abc"
)

func newFixture(t *testing.T, syncEnabled bool) *fixture {
	t.Helper()
	f := &fixture{
		transfers: &fakeTransferRepo{transfers: map[int64]*entity.Transfer{
			testTransferID: {
				ID:         testTransferID,
				PublicID:   "TR-2026-00042",
				State:      entity.TransferStateOpen,
				OutletFrom: "outlet-a",
				OutletTo:   "outlet-b",
			},
		}},
		lines: &fakeLineRepo{lines: []*entity.TransferLine{
			{ID: 1, TransferID: testTransferID, ProductID: "SKU-1", VendProductID: "vp-1", QtyRequested: 10, UploadState: entity.LineUploadPending},
			{ID: 2, TransferID: testTransferID, ProductID: "SKU-2", VendProductID: "vp-2", QtyRequested: 5, UploadState: entity.LineUploadPending},
		}},
		progress: &fakeProgressRepo{},
		gateway: &fakeGateway{
			createResult: upload.GatewayResult{OK: true, Status: 200, ConsignmentID: "cons-1", Reference: "VEND-99"},
			markResult:   okResult(),
		},
		workQueue: &fakeWorkQueueRepo{},
		audit:     &fakeAuditRepo{},
	}
	tx := &fakeTxRunner{transfers: f.transfers, lines: f.lines, progress: f.progress}
	f.orchestrator = upload.NewOrchestrator(
		tx, f.transfers, f.lines, f.progress,
		f.gateway, queue.NewService(f.workQueue),
		upload.NewAuditSink(f.audit, logger.Nop()), logger.Nop(),
		syncEnabled,
	)
	return f
}

func (f *fixture) actor() upload.Actor {
	return upload.Actor{UserID: testActorID, Display: "Ana"}
}

func (f *fixture) submit(t *testing.T, items ...upload.SubmitItem) *upload.SubmitResult {
	t.Helper()
	res, err := f.orchestrator.SubmitAndPrepare(context.Background(), f.actor(), testTransferID, items, "")
	require.NoError(t, err)
	return res
}

func (f *fixture) line(id int64) *entity.TransferLine {
	for _, l := range f.lines.lines {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SubmitAndPrepare
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_ConfirmaCantidadesYPreparaSesion(t *testing.T) {
	f := newFixture(t, true)

	res := f.submit(t,
		upload.SubmitItem{ProductID: "SKU-1", CountedQty: 7},
		upload.SubmitItem{ProductID: "SKU-2", CountedQty: 5},
	)

	assert.NotEmpty(t, res.SessionID, "debe generarse una sesión de subida")
	assert.Equal(t, fmt.Sprintf("/api/transfers/%d/upload/%s", testTransferID, res.SessionID), res.UploadURL)
	assert.Equal(t, fmt.Sprintf("/api/transfers/%d/progress/%s", testTransferID, res.SessionID), res.ProgressURL)

	assert.Equal(t, 7, f.line(1).QtySent)
	assert.Equal(t, 5, f.line(2).QtySent)
	assert.Equal(t, entity.TransferStatePacking, f.transfers.transfers[testTransferID].State,
		"el submit debe dejar el traslado en PACKING")

	p, err := f.progress.Get(testTransferID, res.SessionID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, entity.ProgressReady, p.Status)
}

func TestSubmit_ClampeaSobreConteoALoPedido(t *testing.T) {
	f := newFixture(t, true)

	f.submit(t, upload.SubmitItem{ProductID: "SKU-1", CountedQty: 25})

	assert.Equal(t, 10, f.line(1).QtySent,
		"contar de más nunca debe enviar más de lo pedido")
}

func TestSubmit_CantidadCeroSeOmiteSinError(t *testing.T) {
	f := newFixture(t, true)

	f.submit(t,
		upload.SubmitItem{ProductID: "SKU-1", CountedQty: 3},
		upload.SubmitItem{ProductID: "SKU-2", CountedQty: 0},
	)

	assert.Equal(t, 3, f.line(1).QtySent)
	assert.Equal(t, 0, f.line(2).QtySent, "cantidad cero no debe tocar la línea")
}

func TestSubmit_ProductoDesconocido_TodoONada(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.orchestrator.SubmitAndPrepare(context.Background(), f.actor(), testTransferID,
		[]upload.SubmitItem{
			{ProductID: "SKU-1", CountedQty: 4},
			{ProductID: "SKU-FANTASMA", CountedQty: 2},
		}, "")

	assert.ErrorIs(t, err, domain.ErrLineNotFound)
	assert.Equal(t, 0, f.line(1).QtySent,
		"un producto desconocido debe revertir también las líneas ya procesadas")
	assert.Equal(t, entity.TransferStateOpen, f.transfers.transfers[testTransferID].State,
		"el estado no debe cambiar si el submit falla")
}

func TestSubmit_SinCantidadesValidas_RetornaError(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.orchestrator.SubmitAndPrepare(context.Background(), f.actor(), testTransferID,
		[]upload.SubmitItem{{ProductID: "SKU-1", CountedQty: 0}}, "")

	assert.ErrorIs(t, err, domain.ErrNoValidItems)
}

func TestSubmit_TrasladoEnviado_NoEditable(t *testing.T) {
	f := newFixture(t, true)
	f.transfers.transfers[testTransferID].State = entity.TransferStateSent

	_, err := f.orchestrator.SubmitAndPrepare(context.Background(), f.actor(), testTransferID,
		[]upload.SubmitItem{{ProductID: "SKU-1", CountedQty: 1}}, "")

	assert.ErrorIs(t, err, domain.ErrNotEditable)
}

func TestSubmit_TrasladoInexistente_NotFound(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.orchestrator.SubmitAndPrepare(context.Background(), f.actor(), 999,
		[]upload.SubmitItem{{ProductID: "SKU-1", CountedQty: 1}}, "")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmit_NotasSeAgreganConMarca(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.orchestrator.SubmitAndPrepare(context.Background(), f.actor(), testTransferID,
		[]upload.SubmitItem{{ProductID: "SKU-1", CountedQty: 1}}, "faltó una caja")
	require.NoError(t, err)

	notes := f.transfers.transfers[testTransferID].Notes
	assert.Contains(t, notes, "faltó una caja")
	assert.Contains(t, notes, "Ana", "la nota debe llevar el nombre del operador")
}

func TestSubmit_ReSubmitResetaEstadoDeSubida(t *testing.T) {
	f := newFixture(t, true)
	f.transfers.transfers[testTransferID].State = entity.TransferStatePacking
	f.line(1).UploadState = entity.LineUploadUploaded

	f.submit(t, upload.SubmitItem{ProductID: "SKU-1", CountedQty: 2})

	assert.Equal(t, entity.LineUploadPending, f.line(1).UploadState,
		"una cantidad nueva vuelve a dejar la línea pendiente de subida")
}

// ──────────────────────────────────────────────────────────────────────────────
// UploadNow
// ──────────────────────────────────────────────────────────────────────────────

func TestUpload_CreaConsignmentSubeLineasYFinaliza(t *testing.T) {
	f := newFixture(t, true)
	f.submit(t,
		upload.SubmitItem{ProductID: "SKU-1", CountedQty: 7},
		upload.SubmitItem{ProductID: "SKU-2", CountedQty: 5},
	)

	res, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "cons-1", res.ConsignmentID)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Failed)

	assert.Equal(t, 1, f.gateway.createCalls)
	assert.Equal(t, []string{"vp-1", "vp-2"}, f.gateway.addCalls)
	assert.Equal(t, 1, f.gateway.markSentCalls)

	tr := f.transfers.transfers[testTransferID]
	assert.Equal(t, entity.TransferStateSent, tr.State)
	assert.Equal(t, "cons-1", tr.VendConsignmentID)
	assert.Equal(t, "VEND-99", tr.VendNumber)

	p, _ := f.progress.Get(testTransferID, testSession)
	require.NotNil(t, p)
	assert.Equal(t, entity.ProgressCompleted, p.Status, "el poller debe ver el último estado")
}

func TestUpload_ConsignmentExistente_NoSeDuplica(t *testing.T) {
	f := newFixture(t, true)
	f.submit(t, upload.SubmitItem{ProductID: "SKU-1", CountedQty: 3})
	f.transfers.transfers[testTransferID].VendConsignmentID = "cons-previo"

	res, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)
	require.NoError(t, err)

	assert.Equal(t, 0, f.gateway.createCalls, "nunca se crea un segundo consignment")
	assert.Equal(t, "cons-previo", res.ConsignmentID)
	assert.True(t, res.Success)
	assert.Contains(t, f.progress.history, entity.ProgressResuming)
}

func TestUpload_FallaParcial_QuedaEnPackingYSeEncola(t *testing.T) {
	f := newFixture(t, true)
	f.submit(t,
		upload.SubmitItem{ProductID: "SKU-1", CountedQty: 7},
		upload.SubmitItem{ProductID: "SKU-2", CountedQty: 5},
	)
	f.gateway.addResults = map[string]upload.GatewayResult{
		"vp-2": {OK: false, Status: 500, Err: "server error"},
	}

	res, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)
	require.NoError(t, err, "los fallos de línea son contadores, no errores")

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Failed)

	assert.Equal(t, 0, f.gateway.markSentCalls, "con fallos nunca se finaliza")
	assert.Equal(t, entity.TransferStatePacking, f.transfers.transfers[testTransferID].State,
		"el traslado queda re-invocable en PACKING")

	assert.Equal(t, entity.LineUploadUploaded, f.line(1).UploadState)
	assert.Equal(t, entity.LineUploadFailed, f.line(2).UploadState)

	require.Len(t, f.workQueue.items, 1, "la falla parcial encola el reintento diferido")
	assert.Equal(t, "consignment.retry_upload", f.workQueue.items[0].Operation)

	p, _ := f.progress.Get(testTransferID, testSession)
	assert.Equal(t, entity.ProgressFailed, p.Status)
}

func TestUpload_ReintentoOmiteLineasYaSubidas(t *testing.T) {
	f := newFixture(t, true)
	f.submit(t,
		upload.SubmitItem{ProductID: "SKU-1", CountedQty: 7},
		upload.SubmitItem{ProductID: "SKU-2", CountedQty: 5},
	)
	f.gateway.addResults = map[string]upload.GatewayResult{
		"vp-2": {OK: false, Status: 503, Err: "unavailable"},
	}

	_, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)
	require.NoError(t, err)

	// El remoto se recupera y el operador reintenta.
	f.gateway.addResults = nil
	f.gateway.addCalls = nil

	res, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"vp-2"}, f.gateway.addCalls,
		"las líneas ya subidas no se reenvían en el reintento")
	assert.Equal(t, 0, f.gateway.createCalls, "el consignment se creó una sola vez")
	assert.Equal(t, entity.TransferStateSent, f.transfers.transfers[testTransferID].State)
}

func TestUpload_LineaSinMapeoRemoto_CuentaComoFallo(t *testing.T) {
	f := newFixture(t, true)
	f.line(2).VendProductID = ""
	f.submit(t,
		upload.SubmitItem{ProductID: "SKU-1", CountedQty: 2},
		upload.SubmitItem{ProductID: "SKU-2", CountedQty: 2},
	)

	res, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"vp-1"}, f.gateway.addCalls,
		"una línea sin vend_product_id no genera llamada remota")
}

func TestUpload_CreacionRechazada_NoFijaConsignment(t *testing.T) {
	f := newFixture(t, true)
	f.submit(t, upload.SubmitItem{ProductID: "SKU-1", CountedQty: 1})
	f.gateway.createResult = upload.GatewayResult{OK: false, Status: 422, Err: "invalid outlet"}

	_, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)

	assert.ErrorIs(t, err, domain.ErrRemoteCreateFailed)
	assert.Empty(t, f.transfers.transfers[testTransferID].VendConsignmentID)

	p, _ := f.progress.Get(testTransferID, testSession)
	require.NotNil(t, p, "el progreso de error debe sobrevivir al rollback de la transacción")
	assert.Equal(t, entity.ProgressError, p.Status)
}

func TestUpload_FinalizacionRechazada_QuedaEnPacking(t *testing.T) {
	f := newFixture(t, true)
	f.submit(t, upload.SubmitItem{ProductID: "SKU-1", CountedQty: 1})
	f.gateway.markResult = upload.GatewayResult{OK: false, Status: 500, Err: "boom"}

	res, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)

	assert.ErrorIs(t, err, domain.ErrRemoteFinalizeFailed)
	assert.False(t, res.Success)
	assert.Equal(t, entity.TransferStatePacking, f.transfers.transfers[testTransferID].State,
		"si SENT remoto falla, el estado local no avanza")
}

func TestUpload_EstadoOpen_Conflicto(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)

	assert.ErrorIs(t, err, domain.ErrConflict, "sin submit previo no hay nada que subir")
}

func TestUpload_TrasladoEnviado_Conflicto(t *testing.T) {
	f := newFixture(t, true)
	f.transfers.transfers[testTransferID].State = entity.TransferStateSent

	_, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpload_SincronizacionDeshabilitada(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)

	assert.ErrorIs(t, err, domain.ErrSyncDisabled)
	p, _ := f.progress.Get(testTransferID, testSession)
	require.NotNil(t, p)
	assert.Equal(t, entity.ProgressError, p.Status)
}

func TestUpload_ProgresoEsUltimaEscritura(t *testing.T) {
	f := newFixture(t, true)
	f.submit(t, upload.SubmitItem{ProductID: "SKU-1", CountedQty: 1})

	_, err := f.orchestrator.UploadNow(context.Background(), f.actor(), testTransferID, testSession)
	require.NoError(t, err)

	// Una sola fila por sesión aunque hubo varias escrituras de estado.
	assert.Len(t, f.progress.rows, 2, "una fila por sesión (submit + upload)")
	assert.Greater(t, len(f.progress.history), 3,
		"la subida escribe varios estados intermedios sobre la misma fila")
}

// ──────────────────────────────────────────────────────────────────────────────
// Progress
// ──────────────────────────────────────────────────────────────────────────────

func TestProgress_SesionInexistente_NotFound(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.orchestrator.Progress(testTransferID, "sesion-fantasma")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProgress_DevuelveEstadoActual(t *testing.T) {
	f := newFixture(t, true)
	res := f.submit(t, upload.SubmitItem{ProductID: "SKU-1", CountedQty: 1})

	p, err := f.orchestrator.Progress(testTransferID, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProgressReady, p.Status)
}
