/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/outcome"
	"github.com/scoir/canis-exchange/pkg/wallet"
	"github.com/scoir/canis-exchange/pkg/wallet/mocks"
)

type chanStream struct {
	ch chan wallet.Event
}

func (r *chanStream) Events(context.Context) (<-chan wallet.Event, error) {
	return r.ch, nil
}

func saved(recordType string, record obj) wallet.Event {
	record["type"] = recordType
	b, _ := json.Marshal(obj{"type": wallet.RecordSavedEvent, "payload": obj{"record": record}})
	ev, _ := wallet.ParseEvent(b)
	return ev
}

type walletFixture struct {
	runtime *mocks.Runtime
	stream  *chanStream
	holder  *Wallet
}

func newWalletFixture(t *testing.T) *walletFixture {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	stream := &chanStream{ch: make(chan wallet.Event, 8)}
	hub := wallet.NewHub(stream, wallet.WithHubLogger(zerolog.Nop()))
	require.NoError(t, hub.Start(ctx))

	runtime := &mocks.Runtime{}
	return &walletFixture{
		runtime: runtime,
		stream:  stream,
		holder:  NewWallet(runtime, hub, WithWaiter(testWaiter(200*time.Millisecond)), WithLogger(zerolog.Nop())),
	}
}

// emit sends events once the mocked call has returned, which is after the holder subscribed.
func (r *walletFixture) emit(events ...wallet.Event) func(mock.Arguments) {
	return func(mock.Arguments) {
		go func() {
			for _, ev := range events {
				r.stream.ch <- ev
			}
		}()
	}
}

func TestWallet_ReceiveInvitation(t *testing.T) {
	f := newWalletFixture(t)

	inv, err := invitation.NewCodec().Encode(invitation.OOBDIDExchangeV11, oobProofInvitation(), invitation.Connectionless())
	require.NoError(t, err)

	receipt := &wallet.Receipt{ConnectionRecord: &wallet.ConnectionRecord{ID: "w-conn-1"}}
	receipt.OutOfBandRecord.ID = "w-oob-1"
	f.runtime.On("ReceiveInvitationURL", mock.Anything, inv.Payload.URL).Return(receipt, nil)

	got, err := f.holder.ReceiveInvitation(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, &Receipt{ConnectionID: "w-conn-1", OutOfBandID: "w-oob-1", PendingRequestThreadIDs: []string{"th-1"}}, got)
	f.runtime.AssertExpectations(t)
}

func TestWallet_CredentialOffer(t *testing.T) {
	offer := func(id, state string) obj {
		return obj{"id": id, "state": state, "connectionId": "w-conn-1", "threadId": "cth-1"}
	}

	t.Run("offer already saved", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Credentials", mock.Anything).Return([]*wallet.CredentialRecord{
			{ID: "w-cred-0", State: wallet.CredentialDone, ConnectionID: "w-conn-1"},
			{ID: "w-cred-1", State: wallet.CredentialOfferReceived, ConnectionID: "w-conn-1", ThreadID: "cth-1"},
		}, nil)

		ref, err := f.holder.FindCredentialOffer(context.Background(), "w-conn-1")
		require.NoError(t, err)
		require.Equal(t, &OfferRef{ID: "w-cred-1", ConnectionID: "w-conn-1", ThreadID: "cth-1"}, ref)
	})

	t.Run("offer arrives as an event", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Credentials", mock.Anything).Return([]*wallet.CredentialRecord{}, nil).
			Run(f.emit(
				saved(wallet.CredentialRecordType, offer("w-cred-9", wallet.CredentialOfferReceived)),
			))

		ref, err := f.holder.FindCredentialOffer(context.Background(), "w-conn-1")
		require.NoError(t, err)
		require.Equal(t, "w-cred-9", ref.ID)
	})

	t.Run("accept waits for the credential", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Credentials", mock.Anything).Return([]*wallet.CredentialRecord{
			{ID: "w-cred-1", State: wallet.CredentialOfferReceived, ConnectionID: "w-conn-1"},
		}, nil)
		f.runtime.On("AcceptCredentialOffer", mock.Anything, "w-cred-1").
			Return(&wallet.CredentialRecord{ID: "w-cred-1", State: wallet.CredentialRequestSent}, nil).
			Run(f.emit(
				saved(wallet.CredentialRecordType, offer("w-cred-2", wallet.CredentialDone)),
				saved(wallet.CredentialRecordType, offer("w-cred-1", wallet.CredentialRequestSent)),
				saved(wallet.CredentialRecordType, offer("w-cred-1", wallet.CredentialReceived)),
			))

		require.NoError(t, f.holder.AcceptCredentialOffer(context.Background(), OfferRef{ID: "w-cred-1"}))
		f.runtime.AssertExpectations(t)
	})

	t.Run("already accepted", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Credentials", mock.Anything).Return([]*wallet.CredentialRecord{
			{ID: "w-cred-1", State: wallet.CredentialDone},
		}, nil)

		require.NoError(t, f.holder.AcceptCredentialOffer(context.Background(), OfferRef{ID: "w-cred-1"}))
		f.runtime.AssertNotCalled(t, "AcceptCredentialOffer", mock.Anything, mock.Anything)
	})

	t.Run("declined", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Credentials", mock.Anything).Return([]*wallet.CredentialRecord{
			{ID: "w-cred-1", State: wallet.CredentialOfferReceived},
		}, nil)
		f.runtime.On("AcceptCredentialOffer", mock.Anything, "w-cred-1").
			Return(&wallet.CredentialRecord{ID: "w-cred-1", State: wallet.CredentialRequestSent}, nil).
			Run(f.emit(saved(wallet.CredentialRecordType, offer("w-cred-1", wallet.CredentialDeclined))))

		err := f.holder.AcceptCredentialOffer(context.Background(), OfferRef{ID: "w-cred-1"})
		require.True(t, outcome.IsProtocolFailure(err))
	})
}

func TestWallet_AcceptProof(t *testing.T) {
	request := func(id, state string) obj {
		return obj{"id": id, "state": state, "connectionId": "w-conn-1", "threadId": "th-1"}
	}

	t.Run("request arrives after subscribing", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{}, nil).
			Run(f.emit(saved(wallet.ProofRecordType, request("w-proof-1", wallet.ProofRequestReceived))))
		f.runtime.On("AcceptProofRequest", mock.Anything, "w-proof-1").
			Return(&wallet.ProofRecord{ID: "w-proof-1", State: wallet.ProofPresentationSent}, nil)

		require.NoError(t, f.holder.AcceptProof(context.Background(), ByThread("th-1")))
		f.runtime.AssertExpectations(t)
	})

	t.Run("by connection from the scan", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{
			{ID: "w-proof-0", State: wallet.ProofDone, ConnectionID: "w-conn-1"},
			{ID: "w-proof-1", State: wallet.ProofRequestReceived, ConnectionID: "w-conn-1"},
		}, nil)
		f.runtime.On("AcceptProofRequest", mock.Anything, "w-proof-1").
			Return(&wallet.ProofRecord{ID: "w-proof-1", State: wallet.ProofRequestReceived}, nil).
			Run(f.emit(saved(wallet.ProofRecordType, request("w-proof-1", wallet.ProofDone))))

		require.NoError(t, f.holder.AcceptProof(context.Background(), ByConnection("w-conn-1")))
		f.runtime.AssertExpectations(t)
	})

	t.Run("accepting the same connection twice", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{
			{ID: "w-proof-1", State: wallet.ProofRequestReceived, ConnectionID: "w-conn-1", CreatedAt: "2024-05-01T10:00:00.000Z"},
		}, nil).Once()
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{
			{ID: "w-proof-0", State: wallet.ProofAbandoned, ConnectionID: "w-conn-1", CreatedAt: "2024-04-30T09:00:00.000Z"},
			{ID: "w-proof-1", State: wallet.ProofPresentationSent, ConnectionID: "w-conn-1", CreatedAt: "2024-05-01T10:00:00.000Z"},
		}, nil)
		f.runtime.On("AcceptProofRequest", mock.Anything, "w-proof-1").
			Return(&wallet.ProofRecord{ID: "w-proof-1", State: wallet.ProofPresentationSent}, nil).Once()

		require.NoError(t, f.holder.AcceptProof(context.Background(), ByConnection("w-conn-1")))
		require.NoError(t, f.holder.AcceptProof(context.Background(), ByConnection("w-conn-1")))
		f.runtime.AssertNumberOfCalls(t, "AcceptProofRequest", 1)
	})

	t.Run("already presented", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{
			{ID: "w-proof-1", State: wallet.ProofDone, ThreadID: "th-1"},
		}, nil)

		require.NoError(t, f.holder.AcceptProof(context.Background(), ByThread("th-1")))
		f.runtime.AssertNotCalled(t, "AcceptProofRequest", mock.Anything, mock.Anything)
	})

	t.Run("abandoned", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{}, nil).
			Run(f.emit(saved(wallet.ProofRecordType, request("w-proof-1", wallet.ProofAbandoned))))

		err := f.holder.AcceptProof(context.Background(), ByThread("th-1"))
		require.True(t, outcome.IsProtocolFailure(err))
	})

	t.Run("request never arrives", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{}, nil)

		err := f.holder.AcceptProof(context.Background(), ByThread("th-1"))
		require.True(t, outcome.IsTimeout(err))
	})

	t.Run("caller cancels", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Proofs", mock.Anything).Return([]*wallet.ProofRecord{}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := f.holder.AcceptProof(ctx, ByThread("th-1"))
		require.Error(t, err)
		require.False(t, outcome.IsTimeout(err))
		require.True(t, errors.Is(err, context.Canceled))
	})
}

func TestWallet_WaitForConnectionReady(t *testing.T) {
	connection := func(id, state string) obj {
		return obj{"id": id, "state": state}
	}

	t.Run("already completed", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Connections", mock.Anything).Return([]*wallet.ConnectionRecord{
			{ID: "w-conn-0", State: wallet.ConnectionAbandoned},
			{ID: "w-conn-1", State: wallet.ConnectionCompleted},
		}, nil)

		require.NoError(t, f.holder.WaitForConnectionReady(context.Background(), "w-conn-1"))
	})

	t.Run("completes after subscribing", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Connections", mock.Anything).Return([]*wallet.ConnectionRecord{
			{ID: "w-conn-1", State: "request-sent"},
		}, nil).Run(f.emit(
			saved(wallet.ConnectionRecordType, connection("w-conn-2", wallet.ConnectionCompleted)),
			saved(wallet.ConnectionRecordType, connection("w-conn-1", "response-received")),
			saved(wallet.ConnectionRecordType, connection("w-conn-1", wallet.ConnectionCompleted)),
		))

		require.NoError(t, f.holder.WaitForConnectionReady(context.Background(), "w-conn-1"))
	})

	t.Run("abandoned", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Connections", mock.Anything).Return([]*wallet.ConnectionRecord{
			{ID: "w-conn-1", State: wallet.ConnectionAbandoned},
		}, nil)

		err := f.holder.WaitForConnectionReady(context.Background(), "w-conn-1")
		require.True(t, outcome.IsProtocolFailure(err))
	})

	t.Run("never completes", func(t *testing.T) {
		f := newWalletFixture(t)
		f.runtime.On("Connections", mock.Anything).Return([]*wallet.ConnectionRecord{}, nil)

		err := f.holder.WaitForConnectionReady(context.Background(), "w-conn-1")
		require.True(t, outcome.IsTimeout(err))
	})

	t.Run("no connection id", func(t *testing.T) {
		f := newWalletFixture(t)
		require.Error(t, f.holder.WaitForConnectionReady(context.Background(), ""))
		f.runtime.AssertNotCalled(t, "Connections", mock.Anything)
	})
}

func TestWallet_SendBasicMessage(t *testing.T) {
	f := newWalletFixture(t)
	f.runtime.On("SendBasicMessage", mock.Anything, "w-conn-1", "ok").Return(nil).Once()
	f.runtime.On("SendBasicMessage", mock.Anything, "w-conn-2", "ok").Return(errors.New("no such connection"))

	require.NoError(t, f.holder.SendBasicMessage(context.Background(), "w-conn-1", "ok"))
	require.Error(t, f.holder.SendBasicMessage(context.Background(), "w-conn-2", "ok"))
	f.runtime.AssertExpectations(t)
}
