/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/scoir/canis-exchange/pkg/invitation"
)

const (
	DefaultQRFile = "invitation.png"
	DefaultQRSize = 256

	URLFile      = "invitation_url.txt"
	DocumentFile = "invitation.json"
)

// Manual hands the invitation to a person: it writes the URL, the document and a QR code
// to disk and returns at once. Nothing is accepted on the holder's behalf.
type Manual struct {
	*options
	lock sync.Mutex
}

var _ Client = (*Manual)(nil)

func NewManual(opts ...Option) *Manual {
	return &Manual{options: newOptions(opts)}
}

func (r *Manual) ReceiveInvitation(_ context.Context, inv *invitation.Invitation) (*Receipt, error) {
	if inv == nil || inv.Payload.URL == "" {
		return nil, errors.New("manual holder needs an invitation URL")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "unable to create %s", r.dir)
	}

	if err := ioutil.WriteFile(filepath.Join(r.dir, URLFile), []byte(inv.Payload.URL+"\n"), 0644); err != nil {
		return nil, errors.Wrap(err, "unable to write invitation url")
	}

	doc, err := json.MarshalIndent(inv.Payload.Invitation, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal invitation document")
	}

	if err := ioutil.WriteFile(filepath.Join(r.dir, DocumentFile), doc, 0644); err != nil {
		return nil, errors.Wrap(err, "unable to write invitation document")
	}

	qrPath := filepath.Join(r.dir, r.qrFile)
	if err := writeQR(inv.Payload.URL, r.qrSize, qrPath); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("variant", string(inv.Variant)).
		Str("url", inv.Payload.URL).
		Str("qr", qrPath).
		Msg("scan the invitation with a wallet")

	return &Receipt{}, nil
}

// writeQR drops to low error correction when the URL is too long for medium.
func writeQR(content string, size int, path string) error {
	err := qrcode.WriteFile(content, qrcode.Medium, size, path)
	if err == nil {
		return nil
	}

	if err := qrcode.WriteFile(content, qrcode.Low, size, path); err != nil {
		return errors.Wrap(err, "unable to render invitation QR code")
	}

	return nil
}

// WaitForConnectionReady returns at once: the person holding the wallet completes the connection.
func (r *Manual) WaitForConnectionReady(_ context.Context, _ string) error {
	return nil
}

func (r *Manual) SendBasicMessage(_ context.Context, connectionID, content string) error {
	r.log.Info().Str("connection_id", connectionID).Str("content", content).Msg("reply to the message from the wallet")
	return nil
}

func (r *Manual) FindCredentialOffer(_ context.Context, connectionID string) (*OfferRef, error) {
	return &OfferRef{ConnectionID: connectionID}, nil
}

func (r *Manual) AcceptCredentialOffer(_ context.Context, ref OfferRef) error {
	r.log.Info().Str("connection_id", ref.ConnectionID).Msg("accept the credential offer in the wallet")
	return nil
}

func (r *Manual) AcceptProof(_ context.Context, ref ProofRef) error {
	r.log.Info().Str("request", ref.String()).Msg("accept the proof request in the wallet")
	return nil
}
