package web3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// TokenParams 描述待部署代币的构造参数。
type TokenParams struct {
	Name          string
	Symbol        string
	Decimals      uint8
	InitialSupply *big.Int
	MetadataURI   string
}

// DeployResult 记录代币部署结果。
type DeployResult struct {
	MintAddress string
	TxHash      string
}

// Artifact 是编译产物, 对应 solc/hardhat 输出的 {"abi": [...], "bytecode": "0x..."}。
type Artifact struct {
	ABI      string
	Bytecode []byte
}

type rawArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

// LoadArtifact reads a compiled contract artifact from disk.
func LoadArtifact(path string) (Artifact, error) {
	if strings.TrimSpace(path) == "" {
		return Artifact{}, errors.New("未配置代币合约产物路径")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("读取合约产物失败: %w", err)
	}
	return ParseArtifact(content)
}

// ParseArtifact decodes an artifact payload.
func ParseArtifact(content []byte) (Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(content, &raw); err != nil {
		return Artifact{}, fmt.Errorf("解析合约产物失败: %w", err)
	}
	if len(raw.ABI) == 0 {
		return Artifact{}, errors.New("合约产物缺少 ABI")
	}
	bin := strings.TrimSpace(raw.Bytecode)
	if bin == "" {
		return Artifact{}, errors.New("合约产物缺少字节码")
	}
	bytecode := common.FromHex(bin)
	if len(bytecode) == 0 {
		return Artifact{}, errors.New("合约字节码不是有效的十六进制")
	}
	return Artifact{ABI: string(raw.ABI), Bytecode: bytecode}, nil
}

// TokenDeployer 把通用的合约部署能力包装成代币发射操作。
type TokenDeployer struct {
	client   Client
	auth     *bind.TransactOpts
	artifact Artifact
}

// NewTokenDeployer binds a chain client, a signer, and a compiled artifact.
func NewTokenDeployer(client Client, auth *bind.TransactOpts, artifact Artifact) (*TokenDeployer, error) {
	if client == nil {
		return nil, errors.New("未提供链客户端")
	}
	if auth == nil {
		return nil, errors.New("未提供交易签名器")
	}
	if len(artifact.Bytecode) == 0 {
		return nil, errors.New("未提供合约产物")
	}
	return &TokenDeployer{client: client, auth: auth, artifact: artifact}, nil
}

// DeployToken 部署一枚 ERC-20 代币并返回合约地址。
func (d *TokenDeployer) DeployToken(ctx context.Context, params TokenParams) (DeployResult, error) {
	if d == nil {
		return DeployResult{}, errors.New("未初始化的代币部署器")
	}
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Symbol) == "" {
		return DeployResult{}, errors.New("代币名称和符号不能为空")
	}
	supply := params.InitialSupply
	if supply == nil || supply.Sign() <= 0 {
		return DeployResult{}, errors.New("代币初始供应量必须为正数")
	}

	result, err := d.client.DeployContract(ctx, d.auth, d.artifact.ABI, d.artifact.Bytecode,
		params.Name, params.Symbol, params.Decimals, supply, params.MetadataURI)
	if err != nil {
		return DeployResult{}, err
	}

	out := DeployResult{MintAddress: result.ContractAddress.Hex()}
	if result.Transaction != nil {
		out.TxHash = result.Transaction.Hash().Hex()
	}
	return out, nil
}
