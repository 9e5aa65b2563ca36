// Package roomtoken 封装房晚通证合约的链上访问
package roomtoken

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Config 链端配置
type Config struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	OperatorKey     string // 运营方私钥（hex，不带 0x 前缀也可）
	CallTimeout     time.Duration
	ConfirmTimeout  time.Duration
}

// RoomDayRecord getAllRoomDays 返回的单条记录
type RoomDayRecord struct {
	RoomId        *big.Int       `abi:"roomId"`
	Date          *big.Int       `abi:"date"`
	Year          uint16         `abi:"year"`
	Month         uint8          `abi:"month"`
	Day           uint8          `abi:"day"`
	RoomType      uint8          `abi:"roomType"`
	PricePerNight *big.Int       `abi:"pricePerNight"`
	Status        uint8          `abi:"status"`
	TokenId       *big.Int       `abi:"tokenId"`
	Owner         common.Address `abi:"owner"`
}

// TotalRecord getTotals 返回的单条统计
type TotalRecord struct {
	Year     uint16   `abi:"year"`
	Month    uint8    `abi:"month"`
	Day      uint8    `abi:"day"`
	Status   uint8    `abi:"status"`
	RoomType uint8    `abi:"roomType"`
	Count    *big.Int `abi:"count"`
}

// TxResult 写操作结果
//
// Mined 为 false 表示等待回执超时，交易可能仍在链上执行，
// 调用方不得据此重发交易。
type TxResult struct {
	TxHash      string
	Mined       bool
	Success     bool
	BlockNumber int64
	GasUsed     int64
}

// 预定义错误，供上层用 errors.Is 分类
var (
	ErrProviderUnavailable = errors.New("roomtoken: provider unavailable")
	ErrCallFailed          = errors.New("roomtoken: contract call failed")
	ErrReverted            = errors.New("roomtoken: transaction reverted")
	ErrConfirmTimeout      = errors.New("roomtoken: confirm timeout")
	ErrInsufficientFunds   = errors.New("roomtoken: insufficient funds")
)

// Client 合约客户端
type Client struct {
	eth        *ethclient.Client
	contract   *bind.BoundContract
	parsedABI  abi.ABI
	address    common.Address
	chainID    *big.Int
	operator   *ecdsa.PrivateKey
	operatorAt common.Address
	cfg        *Config
}

// NewClient 创建合约客户端并校验连通性
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrProviderUnavailable, cfg.RPCURL, err)
	}

	parsed, err := abi.JSON(strings.NewReader(HotelRoomTokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(address, parsed, eth, eth, eth)

	c := &Client{
		eth:       eth,
		contract:  contract,
		parsedABI: parsed,
		address:   address,
		chainID:   big.NewInt(cfg.ChainID),
		cfg:       cfg,
	}

	if cfg.OperatorKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse operator key: %w", err)
		}
		c.operator = key
		c.operatorAt = crypto.PubkeyToAddress(key.PublicKey)
	}

	// 连通性检查：链 ID 必须匹配，防止把交易发到错误网络
	checkCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
	defer cancel()
	chainID, err := eth.ChainID(checkCtx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("%w: chain id: %v", ErrProviderUnavailable, err)
	}
	if chainID.Cmp(c.chainID) != 0 {
		eth.Close()
		return nil, fmt.Errorf("chain id mismatch: want %d, got %s", cfg.ChainID, chainID)
	}

	return c, nil
}

// Close 关闭底层连接
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// OperatorAddress 运营方地址
func (c *Client) OperatorAddress() string {
	return c.operatorAt.Hex()
}

// GetAllRoomDays 分页读取房晚记录
func (c *Client) GetAllRoomDays(ctx context.Context, offset, limit int64) ([]RoomDayRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: callCtx}, &out,
		"getAllRoomDays", big.NewInt(offset), big.NewInt(limit))
	if err != nil {
		return nil, classifyCallError(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: getAllRoomDays: empty output", ErrCallFailed)
	}

	records := *abi.ConvertType(out[0], new([]RoomDayRecord)).(*[]RoomDayRecord)
	return records, nil
}

// GetTotals 读取全量聚合统计
func (c *Client) GetTotals(ctx context.Context) ([]TotalRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: callCtx}, &out, "getTotals")
	if err != nil {
		return nil, classifyCallError(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: getTotals: empty output", ErrCallFailed)
	}

	totals := *abi.ConvertType(out[0], new([]TotalRecord)).(*[]TotalRecord)
	return totals, nil
}

// MintMultipleRoomDays 铸造房间区间 × 日期区间的房晚通证
func (c *Client) MintMultipleRoomDays(ctx context.Context, roomIDStart, roomIDEnd int64, startTs, endTs int64, roomType uint8, priceWei *big.Int) (*TxResult, error) {
	return c.transact(ctx, nil, "mintMultipleRoomDays",
		big.NewInt(roomIDStart), big.NewInt(roomIDEnd),
		big.NewInt(startTs), big.NewInt(endTs),
		roomType, priceWei)
}

// TransferRoomDay 购买单个房晚，value 为支付金额
func (c *Client) TransferRoomDay(ctx context.Context, tokenID int64, value *big.Int) (*TxResult, error) {
	return c.transact(ctx, value, "transferRoomDay", big.NewInt(tokenID))
}

// TransferRoomDayMultiple 一笔交易购买多个房晚，全部成功或全部失败
func (c *Client) TransferRoomDayMultiple(ctx context.Context, tokenIDs []int64, value *big.Int) (*TxResult, error) {
	ids := make([]*big.Int, len(tokenIDs))
	for i, id := range tokenIDs {
		ids[i] = big.NewInt(id)
	}
	return c.transact(ctx, value, "transferRoomDayMultiple", ids)
}

// SetToUsed 核销房晚（BOOKED → USED），持有人校验由合约执行
func (c *Client) SetToUsed(ctx context.Context, tokenID int64) (*TxResult, error) {
	return c.transact(ctx, nil, "setToUsed", big.NewInt(tokenID))
}

// transact 发送交易并等待回执
func (c *Client) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (*TxResult, error) {
	if c.operator == nil {
		return nil, fmt.Errorf("%w: operator key not configured", ErrCallFailed)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.operator, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	if value != nil {
		opts.Value = value
	}

	tx, err := c.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, classifyCallError(err)
	}

	return c.waitMined(ctx, tx)
}

// waitMined 等待交易上链
//
// 超时不代表失败：回执结果未知，结果留给补查流程，
// 这里只如实返回 Mined=false。
func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (*TxResult, error) {
	result := &TxResult{TxHash: tx.Hash().Hex()}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return result, fmt.Errorf("%w: %s", ErrConfirmTimeout, result.TxHash)
		}
		return result, classifyCallError(err)
	}

	result.Mined = true
	result.BlockNumber = receipt.BlockNumber.Int64()
	result.GasUsed = int64(receipt.GasUsed)

	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, fmt.Errorf("%w: %s", ErrReverted, result.TxHash)
	}

	result.Success = true
	return result, nil
}

// TransactionReceipt 按哈希补查回执，用于确认超时后的对账
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*TxResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	receipt, err := c.eth.TransactionReceipt(callCtx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			// 还没上链
			return &TxResult{TxHash: txHash}, nil
		}
		return nil, classifyCallError(err)
	}

	return &TxResult{
		TxHash:      txHash,
		Mined:       true,
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
		BlockNumber: receipt.BlockNumber.Int64(),
		GasUsed:     int64(receipt.GasUsed),
	}, nil
}

// classifyCallError 将底层错误归类为包级错误
func classifyCallError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case strings.Contains(msg, "execution reverted"):
		return fmt.Errorf("%w: %v", ErrReverted, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "connection reset"):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
}
