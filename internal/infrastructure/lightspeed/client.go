package lightspeed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Traslados-api/internal/domain"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 2 // reintentos además del intento inicial (3 llamadas en total)
	defaultBackoffBase = time.Second
	maxRetryAfter      = 30 * time.Second // Retry-After por encima de esto se ignora
	maxBodyBytes       = 1 << 20          // 1 MB
	userAgent          = "CIS-Traslados-Backend/1.0 (+standalone)"
)

// Result resultado estructurado de una llamada a la API Lightspeed.
// Los fallos HTTP ordinarios NO son errores Go: se inspecciona OK/Status.
type Result struct {
	OK         bool
	Status     int            // 0 si falló el transporte
	Body       map[string]any // body parseado como objeto JSON, o nil
	Raw        string         // texto crudo de la respuesta
	Err        string         // detalle de error de transporte o de la API
	RetryAfter string         // header Retry-After, si vino
}

// Config opciones del cliente.
type Config struct {
	BaseURL     string // ej: https://vapeshed.retail.lightspeed.app/api/2.0
	Token       string // Bearer; obligatorio
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration // base del backoff exponencial (1s en producción)
}

// Client cliente HTTP endurecido para la API de inventario Lightspeed:
// auth Bearer, X-Request-ID e Idempotency-Key por request, y reintentos con
// backoff ante 429/5xx/errores de transporte.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient construye el cliente. Único error posible: token vacío.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, domain.ErrAuthMissing
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Do ejecuta method+path con el payload JSON opcional y devuelve el resultado
// estructurado. Reintenta ante 429/5xx/fallo de transporte hasta MaxRetries
// veces; cualquier otro estado no-2xx se devuelve de inmediato.
func (c *Client) Do(ctx context.Context, method, path string, payload any) *Result {
	url := c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")

	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return &Result{Err: fmt.Sprintf("serializar payload: %v", err)}
		}
	}

	var res *Result
	for attempt := 0; ; attempt++ {
		res = c.doOnce(ctx, method, url, bodyBytes)
		if !retryable(res) || attempt >= c.cfg.MaxRetries {
			return res
		}
		delay := c.backoff(attempt, res)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			res.Err = "cancelado durante backoff: " + ctx.Err().Error()
			return res
		}
	}
}

// doOnce ejecuta un único intento. Cada intento lleva su propio X-Request-ID
// e Idempotency-Key: un reintento nunca se traga silenciosamente, a costa de
// no tener exactly-once a nivel HTTP (el orquestador compensa releyendo estado).
func (c *Client) doOnce(ctx context.Context, method, url string, body []byte) *Result {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &Result{Err: fmt.Sprintf("crear request: %v", err)}
	}

	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Idempotency-Key", idempotencyKey(url, requestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Result{Err: fmt.Sprintf("transporte: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Result{Status: resp.StatusCode, Err: fmt.Sprintf("leer respuesta: %v", err)}
	}

	res := &Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Raw:    string(raw),
	}
	if len(raw) > 0 {
		var parsed map[string]any
		if json.Unmarshal(raw, &parsed) == nil {
			res.Body = parsed
		}
	}
	if !res.OK {
		res.Err = apiErrorMessage(res)
	}
	res.RetryAfter = resp.Header.Get("Retry-After")
	return res
}

// retryable: 429, 5xx o fallo de transporte (Status 0).
func retryable(res *Result) bool {
	return res.Status == 0 || res.Status == http.StatusTooManyRequests || res.Status >= 500
}

// backoff calcula la espera: Retry-After si viene acotado, si no exponencial
// base, 2x, 4x con tope de 8x la base.
func (c *Client) backoff(attempt int, res *Result) time.Duration {
	if res.RetryAfter != "" {
		if secs, err := strconv.Atoi(res.RetryAfter); err == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			if d <= maxRetryAfter {
				return d
			}
		}
	}
	d := c.cfg.BackoffBase << attempt
	if limit := c.cfg.BackoffBase * 8; d > limit {
		d = limit
	}
	return d
}

// idempotencyKey deriva la clave del URL y el request id. Cada intento es
// único a propósito; ver doOnce.
func idempotencyKey(url, requestID string) string {
	sum := sha256.Sum256([]byte(url + requestID))
	return hex.EncodeToString(sum[:])
}

// apiErrorMessage extrae el mensaje de error del body, si lo hay.
func apiErrorMessage(res *Result) string {
	if res.Body != nil {
		if msg, ok := res.Body["message"].(string); ok && msg != "" {
			return msg
		}
		if e, ok := res.Body["error"].(string); ok && e != "" {
			return e
		}
	}
	return fmt.Sprintf("HTTP %d", res.Status)
}
