package registry

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solanarpc "github.com/layer-3/carbx/adapters/solana"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
)

var (
	testProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	testConfig    = solana.MustPublicKeyFromBase58("CLNJGG3sZ8cxuveemDw9D1tk18q3QCWLWAAwpXumPVY8")
)

type fakeFetcher struct {
	accounts []solanarpc.ProgramAccount
	err      error
	filters  []solanarpc.MemcmpFilter
}

func (f *fakeFetcher) ProgramAccounts(_ context.Context, _ solana.PublicKey, filters ...solanarpc.MemcmpFilter) ([]solanarpc.ProgramAccount, error) {
	f.filters = filters
	return f.accounts, f.err
}

func encodeAccount(companyID string, year uint16, mint solana.PublicKey) []byte {
	data := append([]byte(nil), vintageRegistryDisc...)
	data = append(data, testConfig.Bytes()...)
	company := make([]byte, companyIDLength)
	copy(company, companyID)
	data = append(data, company...)
	data = binary.LittleEndian.AppendUint16(data, year)
	data = append(data, mint.Bytes()...)
	return append(data, 254)
}

func TestDecodeRegistryAccount(t *testing.T) {
	mint := solana.TokenProgramID
	full := encodeAccount("ACME", 2021, mint)

	account := DecodeRegistryAccount(full)
	require.NotNil(t, account.TokenMint)
	assert.Equal(t, mint.String(), *account.TokenMint)
	require.NotNil(t, account.Year)
	assert.Equal(t, 2021, *account.Year)
	assert.Len(t, account.CompanyID, companyIDLength)

	truncated := DecodeRegistryAccount(full[:offsetTokenMint+10])
	assert.Nil(t, truncated.TokenMint)
	require.NotNil(t, truncated.Year)
	assert.NotNil(t, truncated.CompanyID)

	wrongDisc := append([]byte{0, 0, 0, 0, 0, 0, 0, 0}, full[discLength:]...)
	empty := DecodeRegistryAccount(wrongDisc)
	assert.Nil(t, empty.TokenMint)
	assert.Nil(t, empty.Year)
	assert.Nil(t, empty.CompanyID)
}

func TestProgram_FetchRegistryAccounts(t *testing.T) {
	fetcher := &fakeFetcher{accounts: []solanarpc.ProgramAccount{
		{Address: testConfig, Data: encodeAccount("ACME", 2022, solana.TokenProgramID)},
	}}
	program := NewProgram(testProgramID, fetcher)

	accounts, err := program.FetchRegistryAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, testConfig.String(), accounts[0].Address)
	assert.Equal(t, "ACME", program.DecodeCompanyID(accounts[0].CompanyID))

	require.Len(t, fetcher.filters, 1)
	assert.Equal(t, uint64(0), fetcher.filters[0].Offset)
	assert.Equal(t, vintageRegistryDisc, fetcher.filters[0].Bytes)

	fetcher.err = errors.New("rpc down")
	_, err = program.FetchRegistryAccounts(context.Background())
	assert.Error(t, err)
}

func TestProgram_FindRegistryAddress(t *testing.T) {
	program := NewProgram(testProgramID, nil)

	a, err := program.FindRegistryAddress(testConfig, "ACME", 2021)
	require.NoError(t, err)
	b, err := program.FindRegistryAddress(testConfig, "ACME", 2021)
	require.NoError(t, err)
	c, err := program.FindRegistryAddress(testConfig, "ACME", 2022)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, solana.IsOnCurve(a.Bytes()))

	_, err = program.FindRegistryAddress(testConfig, "ABCDEFGHIJKLMNOPQ", 2021)
	assert.ErrorIs(t, err, ErrCompanyIDTooLong)

	_, err = program.FindRegistryAddress(testConfig, "ACME", 70000)
	assert.ErrorIs(t, err, ErrInvalidYear)
}

func TestProgram_BuildBurn(t *testing.T) {
	program := NewProgram(testProgramID, nil)
	kp, err := solana.NewKeypair()
	require.NoError(t, err)
	user := kp.PublicKey()
	mint := solana.TokenProgramID
	registryAddr, err := program.FindRegistryAddress(testConfig, "ACME", 2021)
	require.NoError(t, err)

	result, err := program.BuildBurn(context.Background(), ports.BurnAccounts{
		User: user, Config: testConfig, Registry: registryAddr, Mint: mint,
	}, ports.BurnArgs{
		Amount:       decimal.RequireFromString("1.5"),
		Decimals:     6,
		PuroUserUUID: "uuid-1",
	})
	require.NoError(t, err)
	require.Len(t, result.Instructions, 1)
	assert.Empty(t, result.Signers)

	ix := result.Instructions[0]
	assert.Equal(t, testProgramID, ix.ProgramID)
	assert.Equal(t, burnVintageDisc, ix.Data[:8])
	assert.Equal(t, uint64(1_500_000), binary.LittleEndian.Uint64(ix.Data[8:16]))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(ix.Data[16:20]))
	assert.Equal(t, "uuid-1", string(ix.Data[20:]))

	require.Len(t, ix.Accounts, 6)
	assert.Equal(t, user, ix.Accounts[0].PublicKey)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.False(t, ix.Accounts[1].IsWritable)
	assert.Equal(t, registryAddr, ix.Accounts[2].PublicKey)

	ata, err := solana.FindAssociatedTokenAddress(user, mint)
	require.NoError(t, err)
	assert.Equal(t, ata, ix.Accounts[4].PublicKey)
}

func TestProgram_BuildBurnRejectsBadAmounts(t *testing.T) {
	program := NewProgram(testProgramID, nil)
	accounts := ports.BurnAccounts{User: testConfig, Config: testConfig, Registry: testConfig, Mint: solana.TokenProgramID}

	_, err := program.BuildBurn(context.Background(), accounts, ports.BurnArgs{Amount: decimal.RequireFromString("0.0000001"), Decimals: 6})
	assert.ErrorIs(t, err, ErrAmountPrecision)

	_, err = program.BuildBurn(context.Background(), accounts, ports.BurnArgs{Amount: decimal.Zero, Decimals: 6})
	assert.Error(t, err)
}
