package api

import (
	"encoding/base64"
	"errors"
	"fmt"

	"bazario-admin/internal/storage"
)

// Multi-step upload flows stage state in the client store so a wizard can
// cross a navigation (or a restart, with a file-backed store) before the
// actual upload request goes out.

// StagePaymentProof stores a proof image for a later UploadPaymentProof
// call and raises the pending flag.
func (s *SalesAPI) StagePaymentProof(payload []byte) error {
	encoded := base64.StdEncoding.EncodeToString(payload)
	if err := s.c.state.Set(storage.KeyPendingUpload, []byte(encoded)); err != nil {
		return fmt.Errorf("failed to stage payment proof: %w", err)
	}
	if err := s.c.state.Set(storage.KeyPaymentProofPending, []byte("1")); err != nil {
		return fmt.Errorf("failed to flag pending payment proof: %w", err)
	}
	return nil
}

// StagedPaymentProof returns the staged proof payload, or (nil, nil) when
// nothing is staged.
func (s *SalesAPI) StagedPaymentProof() ([]byte, error) {
	encoded, err := s.c.state.Get(storage.KeyPendingUpload)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read staged payment proof: %w", err)
	}
	payload, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("staged payment proof is corrupt: %w", err)
	}
	return payload, nil
}

// PaymentProofPending reports whether a staged proof awaits upload.
func (s *SalesAPI) PaymentProofPending() bool {
	_, err := s.c.state.Get(storage.KeyPaymentProofPending)
	return err == nil
}

func (s *SalesAPI) clearStagedProof() {
	s.c.state.Delete(storage.KeyPendingUpload)
	s.c.state.Delete(storage.KeyPaymentProofPending)
}

// JustSubmitted reports whether a KYC document was uploaded since the last
// call, clearing the marker. The review screen uses it to show the
// "submission received" state exactly once.
func (i *IdentitiesAPI) JustSubmitted() bool {
	if _, err := i.c.state.Get(storage.KeyIdentitySubmitted); err != nil {
		return false
	}
	i.c.state.Delete(storage.KeyIdentitySubmitted)
	return true
}
