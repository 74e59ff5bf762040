package pipeline

import (
	"errors"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/directory"
	"github.com/chainofproduct/cop/envelope"
	"github.com/chainofproduct/cop/groupsvc"
	"github.com/chainofproduct/cop/keystore"
)

// Error kinds, per spec §7. Several alias the sentinel a lower layer
// already defines so a caller checking errors.Is at the pipeline level
// sees the same identity a caller checking at the crypto/envelope/
// directory/groupsvc/keystore level would. ErrSignatureInvalid is its
// own value but carries ErrAuthFailure's text, so error text alone does
// not tell a bad signature from a failed decryption.
var (
	ErrMalformed         = envelope.ErrMalformed
	ErrSignatureInvalid  = errors.New(copcrypto.ErrAuthFailure.Error())
	ErrAuthFailure       = copcrypto.ErrAuthFailure
	ErrNotARecipient     = errors.New("not a recipient")
	ErrUnknownParty      = directory.ErrUnknownParty
	ErrUnknownGroup      = groupsvc.ErrUnknownGroup
	ErrKeyStoreFailure   = errors.New("keystore failure")
	ErrRandomnessFailure = copcrypto.ErrRandomnessFailure
	ErrWrongBuyer        = errors.New("wrong buyer")
	ErrAlreadyExists     = keystore.ErrAlreadyExists
)

// ErrorKind labels one entry of a CheckReport's Failures list.
type ErrorKind string

const (
	KindMalformed        ErrorKind = "Malformed"
	KindSignatureInvalid ErrorKind = "SignatureInvalid"
	KindUnknownParty     ErrorKind = "UnknownParty"
)
