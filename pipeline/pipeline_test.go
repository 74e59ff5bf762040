package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/crypto/storage"
	_ "github.com/chainofproduct/cop/internal/cryptoinit"

	"github.com/chainofproduct/cop/directory"
	"github.com/chainofproduct/cop/envelope"
	"github.com/chainofproduct/cop/groupsvc"
	"github.com/chainofproduct/cop/keystore"
)

// registerableDirectory is the subset of directory's concrete memory
// implementation the test harness needs beyond the PublicKeyDirectory
// interface itself.
type registerableDirectory interface {
	directory.PublicKeyDirectory
	Register(name string, signingPub, encPub copcrypto.KeyPair)
}

// harness bundles a Pipeline over fresh in-memory collaborators and a
// helper to register a party's identity in both the keystore and the
// directory in one step, mirroring what an external onboarding flow
// would do.
type harness struct {
	t      *testing.T
	ks     *keystore.KeyStore
	dir    registerableDirectory
	groups interface {
		groupsvc.GroupResolver
		CreateGroup(groupID string, members []string) error
		AddMember(groupID, name string) error
		RemoveMember(groupID, name string) error
	}
	pl *Pipeline
}

func newHarness(t *testing.T) *harness {
	ks := keystore.New(storage.NewMemoryKeyStorage())
	dir := directory.NewMemory()
	groups := groupsvc.NewMemory()

	pl := New(ks, dir, groups)
	return &harness{t: t, ks: ks, dir: dir, groups: groups, pl: pl}
}

func (h *harness) register(name string) {
	h.t.Helper()
	id, err := h.ks.Generate(name)
	require.NoError(h.t, err)
	h.dir.Register(name, id.Signing, id.Encrypt)
}

func (h *harness) store() DocumentStore {
	return NewMemoryDocumentStore()
}

func TestProtectCheckUnprotectRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")
	h.register("Auditor Corp")

	doc := []byte(`{"item":"lithium","qty":100,"price":"USD 50000"}`)

	env, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", []string{"Auditor Corp"}, nil)
	require.NoError(t, err)

	report, err := h.pl.Check(env)
	require.NoError(t, err)
	assert.True(t, report.WellFormed)
	assert.True(t, report.SellerSigValid)
	assert.Nil(t, report.BuyerSigValid)

	for _, name := range []string{"Ching Chong Extractions", "Lays Chips", "Auditor Corp"} {
		got, err := h.pl.Unprotect(env, name)
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	}

	h.register("Random Co")
	_, err = h.pl.Unprotect(env, "Random Co")
	assert.ErrorIs(t, err, ErrNotARecipient)
}

func TestBuyerSign(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")
	h.register("Auditor Corp")
	h.register("Random Co")

	doc := []byte(`{"item":"lithium","qty":100,"price":"USD 50000"}`)
	env, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", []string{"Auditor Corp"}, nil)
	require.NoError(t, err)

	signed, err := h.pl.BuyerSign(env, "Lays Chips")
	require.NoError(t, err)

	report, err := h.pl.Check(signed)
	require.NoError(t, err)
	require.NotNil(t, report.BuyerSigValid)
	assert.True(t, *report.BuyerSigValid)
	assert.True(t, report.SellerSigValid, "buyer-sign must not invalidate the seller signature")

	_, err = h.pl.BuyerSign(env, "Random Co")
	assert.ErrorIs(t, err, ErrWrongBuyer)
}

func TestGroupSnapshotFreeze(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")
	h.register("Auditor Corp")

	require.NoError(t, h.groups.CreateGroup("tech_partners", []string{"Auditor Corp"}))

	doc := []byte(`{"item":"lithium","qty":100,"price":"USD 50000"}`)
	env, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", nil, []string{"tech_partners"})
	require.NoError(t, err)

	require.Len(t, env.GroupRecipients, 1)
	assert.Equal(t, []string{"Auditor Corp"}, env.GroupRecipients[0].Members)

	// Membership changes after protect-time never retroactively affect
	// the frozen snapshot already baked into the envelope.
	require.NoError(t, h.groups.AddMember("tech_partners", "Lays Chips"))

	store := h.store()
	require.NoError(t, store.Put(env))

	// A group member never gets content access from bare membership —
	// only once the buyer (who already holds K_T) shares directly with
	// them does an addendum appear that lets them unprotect.
	_, err = h.pl.Unprotect(env, "Auditor Corp")
	assert.ErrorIs(t, err, ErrNotARecipient)

	_, err = h.pl.Share(store, env.TxID, "Lays Chips", "Auditor Corp", envelope.KindDirect)
	require.NoError(t, err)

	updated, err := store.Get(env.TxID)
	require.NoError(t, err)

	got, err := h.pl.Unprotect(updated, "Auditor Corp")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestTamperEvidence(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")

	doc := []byte(`{"item":"lithium"}`)
	env, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", nil, nil)
	require.NoError(t, err)

	// content_ciphertext is itself covered by the seller signing-input,
	// so tampering it is caught by Unprotect's leading Check step as a
	// signature failure before content decryption is ever attempted —
	// one acceptable ordering among the two §8 property 3 allows.
	env.ContentCiphertext[0] ^= 0xFF

	_, err = h.pl.Unprotect(env, "Lays Chips")
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestAddendumTamperCausesAuthFailure(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")
	h.register("Auditor Corp")

	doc := []byte(`{"item":"lithium"}`)
	env, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", nil, nil)
	require.NoError(t, err)

	store := h.store()
	require.NoError(t, store.Put(env))
	_, err = h.pl.Share(store, env.TxID, "Lays Chips", "Auditor Corp", envelope.KindDirect)
	require.NoError(t, err)

	updated, err := store.Get(env.TxID)
	require.NoError(t, err)

	// An addendum's wrap is never covered by the original seller
	// signature, so tampering it surfaces as a genuine AuthFailure at
	// unwrap time rather than a signature failure at Check time.
	updated.Addenda[0].Wrap.Ciphertext[0] ^= 0xFF

	_, err = h.pl.Unprotect(updated, "Auditor Corp")
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestSignatureBinding(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")

	doc := []byte(`{"item":"lithium"}`)
	env, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", nil, nil)
	require.NoError(t, err)

	env.Seller = "Someone Else"

	report, err := h.pl.Check(env)
	require.NoError(t, err)
	assert.False(t, report.SellerSigValid)
}

func TestAuditCompleteness(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")
	h.register("Auditor Corp")

	doc := []byte(`{"item":"lithium"}`)
	env, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", nil, nil)
	require.NoError(t, err)

	store := h.store()
	require.NoError(t, store.Put(env))

	_, err = h.pl.Share(store, env.TxID, "Lays Chips", "Auditor Corp", envelope.KindDirect)
	require.NoError(t, err)

	entries, err := h.pl.Audit(store, env.TxID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].SharerKnown)
	assert.True(t, entries[0].SigValid)
	assert.Equal(t, "Auditor Corp", entries[0].Record.DisclosedTo)
}

func TestDistinctPerProtectCall(t *testing.T) {
	h := newHarness(t)
	h.register("Ching Chong Extractions")
	h.register("Lays Chips")

	doc := []byte(`{"item":"lithium"}`)
	env1, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", nil, nil)
	require.NoError(t, err)
	env2, err := h.pl.Protect(doc, "Ching Chong Extractions", "Lays Chips", nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, env1.TxID, env2.TxID)
	assert.NotEqual(t, env1.ContentNonce, env2.ContentNonce)
	assert.NotEqual(t, env1.DirectRecipients[0].EphemeralPub, env2.DirectRecipients[0].EphemeralPub)

	got1, err := h.pl.Unprotect(env1, "Lays Chips")
	require.NoError(t, err)
	got2, err := h.pl.Unprotect(env2, "Lays Chips")
	require.NoError(t, err)
	assert.Equal(t, doc, got1)
	assert.Equal(t, doc, got2)
}
