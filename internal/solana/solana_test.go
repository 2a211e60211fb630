package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKeyFromBase58(t *testing.T) {
	pk, err := PublicKeyFromBase58("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, pk.IsZero())
	assert.Equal(t, "11111111111111111111111111111111", pk.String())

	_, err = PublicKeyFromBase58("not-base58-0OIl")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = PublicKeyFromBase58("1111")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestPublicKeyTextRoundTrip(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	encoded, err := json.Marshal(map[string]PublicKey{"key": kp.PublicKey()})
	require.NoError(t, err)

	var decoded map[string]PublicKey
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.True(t, decoded["key"].Equals(kp.PublicKey()))
}

func TestEncodeCompactU16(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeCompactU16(tt.n), "n=%d", tt.n)
	}
}

func TestFindProgramAddress(t *testing.T) {
	program, err := NewKeypair()
	require.NoError(t, err)

	seeds := [][]byte{[]byte("registry"), []byte("company")}

	first, bump, err := FindProgramAddress(seeds, program.PublicKey())
	require.NoError(t, err)
	second, bump2, err := FindProgramAddress(seeds, program.PublicKey())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, bump, bump2)
	assert.False(t, IsOnCurve(first[:]))

	direct, err := CreateProgramAddress(append(seeds, []byte{bump}), program.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, first, direct)

	other, _, err := FindProgramAddress([][]byte{[]byte("registry"), []byte("other")}, program.PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestFindAssociatedTokenAddress(t *testing.T) {
	owner := MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	mint := MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	address, err := FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, "F8biqkCRK2tHR6EncrcXDGgVTkGRrtojqyW39w41Qspn", address.String())

	_, bump, err := FindProgramAddress([][]byte{owner[:], TokenProgramID[:], mint[:]}, AssociatedTokenAccountProgramID)
	require.NoError(t, err)
	assert.Equal(t, uint8(252), bump)
}

func TestFindProgramAddressRejectsLongSeeds(t *testing.T) {
	long := make([]byte, 33)
	_, _, err := FindProgramAddress([][]byte{long}, SystemProgramID)
	assert.ErrorIs(t, err, ErrMaxSeedLengthExceeded)
}

func TestIsOnCurve(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)
	pk := kp.PublicKey()
	assert.True(t, IsOnCurve(pk[:]))
}

func TestNewTransactionOrdersAccounts(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	extra, err := NewKeypair()
	require.NoError(t, err)
	readonly, err := NewKeypair()
	require.NoError(t, err)
	writable, err := NewKeypair()
	require.NoError(t, err)
	program, err := NewKeypair()
	require.NoError(t, err)

	ix := Instruction{
		ProgramID: program.PublicKey(),
		Accounts: []AccountMeta{
			{PublicKey: readonly.PublicKey()},
			{PublicKey: writable.PublicKey(), IsWritable: true},
			{PublicKey: extra.PublicKey(), IsSigner: true},
			{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true},
		},
		Data: []byte{1, 2, 3},
	}

	var blockhash Hash
	blockhash[0] = 9

	tx, err := NewTransaction([]Instruction{ix}, blockhash, payer.PublicKey())
	require.NoError(t, err)

	keys := tx.Message.AccountKeys
	require.Len(t, keys, 5)
	assert.Equal(t, payer.PublicKey(), keys[0])
	assert.Equal(t, extra.PublicKey(), keys[1])
	assert.Equal(t, writable.PublicKey(), keys[2])
	assert.Equal(t, readonly.PublicKey(), keys[3])
	assert.Equal(t, program.PublicKey(), keys[4])

	assert.Equal(t, MessageHeader{
		NumRequiredSignatures:       2,
		NumReadonlySignedAccounts:   1,
		NumReadonlyUnsignedAccounts: 2,
	}, tx.Message.Header)

	require.Len(t, tx.Message.Instructions, 1)
	assert.Equal(t, uint8(4), tx.Message.Instructions[0].ProgramIDIndex)
	assert.Equal(t, []uint8{3, 2, 1, 0}, tx.Message.Instructions[0].Accounts)

	require.NoError(t, tx.Sign(extra))
	assert.True(t, tx.Signature().IsZero())
	require.NoError(t, tx.Sign(payer))
	assert.False(t, tx.Signature().IsZero())
	assert.True(t, tx.VerifySignatures())

	wire := tx.Serialize()
	assert.Equal(t, byte(2), wire[0])
	assert.Equal(t, tx.Message.Serialize(), wire[1+2*SignatureLength:])
}

func TestTransactionSignRejectsUnknownSigner(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	stranger, err := NewKeypair()
	require.NoError(t, err)

	tx, err := NewTransaction([]Instruction{{ProgramID: SystemProgramID}}, Hash{}, payer.PublicKey())
	require.NoError(t, err)

	assert.ErrorIs(t, tx.Sign(stranger), ErrUnknownSigner)
}

func TestNewTransactionWithoutInstructions(t *testing.T) {
	_, err := NewTransaction(nil, Hash{}, SystemProgramID)
	assert.ErrorIs(t, err, ErrNoInstructions)
}

func TestLoadKeypairFile(t *testing.T) {
	_, private, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	ints := make([]int, len(private))
	for i, b := range private {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	kp, err := LoadKeypairFile(path)
	require.NoError(t, err)

	pub := private.Public().(ed25519.PublicKey)
	assert.Equal(t, []byte(pub), kp.PublicKey().Bytes())

	sig := kp.SignMessage([]byte("hello"))
	assert.True(t, ed25519.Verify(pub, []byte("hello"), sig))
}

func TestExplorerURLs(t *testing.T) {
	assert.Equal(t, ClusterDevnet, ClusterFromRPCURL("https://api.devnet.solana.com"))
	assert.Equal(t, ClusterTestnet, ClusterFromRPCURL("https://api.testnet.solana.com"))
	assert.Equal(t, ClusterMainnet, ClusterFromRPCURL("https://mainnet.helius-rpc.com"))

	assert.Equal(t, "https://solscan.io/tx/abc?cluster=devnet", ExplorerTxURL(ClusterDevnet, "abc"))
	assert.Equal(t, "https://solscan.io/token/mint", ExplorerTokenURL(ClusterMainnet, "mint"))
}
