package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "pinkpay/internal/errors"
	"pinkpay/internal/models"
)

type QRStore struct {
	mu    sync.Mutex
	codes map[string]models.QRCode
}

func NewQRStore() *QRStore {
	return &QRStore{codes: make(map[string]models.QRCode)}
}

func (s *QRStore) Create(ctx context.Context, qr *models.QRCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.codes[qr.QRID]; exists {
		return domainErrors.ErrDuplicateID.WithMessage("QR code %s already exists", qr.QRID)
	}
	if qr.ID == uuid.Nil {
		qr.ID = uuid.New()
	}
	s.codes[qr.QRID] = *qr
	return nil
}

func (s *QRStore) FindByQRID(ctx context.Context, qrID string) (*models.QRCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qr, ok := s.codes[qrID]
	if !ok {
		return nil, domainErrors.ErrQRNotFound
	}
	return &qr, nil
}

func (s *QRStore) UpdateLocked(ctx context.Context, qrID string, fn func(*models.QRCode) error) (*models.QRCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working, ok := s.codes[qrID]
	if !ok {
		return nil, domainErrors.ErrQRNotFound
	}
	if err := fn(&working); err != nil {
		return nil, err
	}
	s.codes[qrID] = working
	out := working
	return &out, nil
}

func (s *QRStore) ExpireActive(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, qr := range s.codes {
		if qr.Status == models.QRActive && qr.IsExpired(now) {
			qr.Status = models.QRExpired
			qr.UpdatedAt = now
			s.codes[id] = qr
			n++
		}
	}
	return n, nil
}
