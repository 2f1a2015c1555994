package idempotency

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// BeginResult resultado de observar una clave de idempotencia.
type BeginResult struct {
	Cached     bool // true: reproducir StatusCode/Response tal cual, sin re-ejecutar
	StatusCode int
	Response   []byte
}

// Service almacén de claves de idempotencia para requests a NUESTRA API:
// un doble submit del cliente devuelve la respuesta original en lugar de
// repetir efectos secundarios.
type Service struct {
	repo repository.IdempotencyRepository
}

// NewService construye el servicio.
func NewService(repo repository.IdempotencyRepository) *Service {
	return &Service{repo: repo}
}

// Begin observa la clave. Si ya fue finalizada devuelve el resultado cacheado;
// si no, reserva la fila y señala al caller que proceda y luego llame Finish.
// Entre Begin y Finish hay una ventana de carrera conocida y aceptada: el
// duplicado dominante es un reintento del cliente tras timeout, no un request
// a milisegundos del primero.
func (s *Service) Begin(key string) (BeginResult, error) {
	hash := hashKey(key)

	rec, err := s.repo.Get(hash)
	if err != nil {
		return BeginResult{}, err
	}
	if rec != nil && rec.Finalized() {
		return BeginResult{Cached: true, StatusCode: *rec.StatusCode, Response: rec.Response}, nil
	}
	if rec == nil {
		// Si perdemos la carrera de inserción seguimos adelante igual:
		// la reserva ya existe y el resultado llegará con Finish.
		if _, err := s.repo.Reserve(hash); err != nil {
			return BeginResult{}, err
		}
	}
	return BeginResult{Cached: false}, nil
}

// Finish guarda el resultado definitivo de la operación asociada a la clave.
func (s *Service) Finish(key string, statusCode int, response []byte) error {
	return s.repo.Finalize(hashKey(key), statusCode, response)
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
