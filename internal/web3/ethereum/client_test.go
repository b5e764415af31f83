package ethereum

import (
	"context"
	"math/big"
	"testing"
	"time"

	"TrendMint/internal/web3"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/crypto"
)

// 运行时代码前缀拷贝自固定字节码, 构造参数附加在末尾时会被初始化代码忽略,
// 因此可以用来验证带构造参数的部署路径。
const (
	tokenStubABI = `[{"inputs":[{"name":"name_","type":"string"},{"name":"symbol_","type":"string"},{"name":"decimals_","type":"uint8"},{"name":"initialSupply_","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"}]`
	tokenStubBin = "0x6027600c60003960276000f37f0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f2060006000a100"
)

func newSimulatedClient(t *testing.T) (*Client, *bind.TransactOpts, *backends.SimulatedBackend) {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	chainID := big.NewInt(1337)
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		t.Fatalf("new transactor: %v", err)
	}
	auth.GasLimit = 1_000_000

	alloc := core.GenesisAlloc{
		auth.From: {Balance: big.NewInt(1_000_000_000_000_000_000)},
	}
	backend := backends.NewSimulatedBackend(alloc, 8_000_000)
	client := NewSimulatedClient("simulated", chainID, backend)
	t.Cleanup(client.Close)
	return client, auth, backend
}

func TestDeployContractWithConstructorArgs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, auth, _ := newSimulatedClient(t)

	bytecode := common.FromHex(tokenStubBin)
	supply := new(big.Int).Mul(big.NewInt(1_000_000_000), big.NewInt(1_000_000_000))
	result, err := client.DeployContract(ctx, auth, tokenStubABI, bytecode,
		"Moon Cat Coin", "MOONC", uint8(9), supply)
	if err != nil {
		t.Fatalf("deploy contract: %v", err)
	}
	if result.ContractAddress == (common.Address{}) {
		t.Fatal("expected contract address to be non-zero")
	}
	if result.Transaction == nil {
		t.Fatal("expected deployment transaction")
	}

	snapshot, err := client.FetchChainSnapshot(ctx)
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snapshot.ChainID != "0x539" {
		t.Fatalf("unexpected chain id %s", snapshot.ChainID)
	}
	if snapshot.BlockNumber == "0x0" {
		t.Fatal("expected block number to advance after deployment")
	}
}

func TestExecuteAction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, auth, _ := newSimulatedClient(t)

	balanceHex, err := client.ExecuteAction(ctx, "eth_getBalance", auth.From.Hex())
	if err != nil {
		t.Fatalf("execute action: %v", err)
	}
	if balanceHex == "" || balanceHex == "0x0" {
		t.Fatalf("expected funded balance, got %s", balanceHex)
	}

	nonceHex, err := client.ExecuteAction(ctx, "eth_getTransactionCount", auth.From.Hex())
	if err != nil {
		t.Fatalf("execute action: %v", err)
	}
	if nonceHex != "0x0" {
		t.Fatalf("expected zero nonce, got %s", nonceHex)
	}

	if _, err := client.ExecuteAction(ctx, "eth_unknown", ""); err == nil {
		t.Fatal("expected error for unsupported action")
	}
}

func TestDeployContractValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, auth, _ := newSimulatedClient(t)

	if _, err := client.DeployContract(ctx, nil, tokenStubABI, common.FromHex(tokenStubBin)); err == nil {
		t.Fatal("expected error when auth is missing")
	}
	if _, err := client.DeployContract(ctx, auth, tokenStubABI, nil); err == nil {
		t.Fatal("expected error when bytecode is empty")
	}
}

var _ web3.Client = (*Client)(nil)
