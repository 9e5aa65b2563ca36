package roomday

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dumeirei/hotel-token-backend/pkg/roomtoken"
)

// roomtokenProviderErr 模拟节点不可达错误
func roomtokenProviderErr() error {
	return fmt.Errorf("%w: dial tcp: connection refused", roomtoken.ErrProviderUnavailable)
}

// fakeChain 内存假链后端，按 tokenId 保存记录并记录每次调用
type fakeChain struct {
	mu      sync.Mutex
	records []roomtoken.RoomDayRecord
	totals  []roomtoken.TotalRecord

	// 注入的错误与返回值
	readErr     error
	transferErr error
	transferRes *roomtoken.TxResult
	setUsedErr  error
	setUsedRes  *roomtoken.TxResult
	mintErr     error
	mintRes     *roomtoken.TxResult
	receiptRes  *roomtoken.TxResult
	receiptErr  error

	// 调用记录
	getAllCalls    []int64 // 每次调用的 offset
	transferCalls  [][]int64
	transferValues []*big.Int
	setUsedCalls   []int64
	mintCalls      []mintCall
}

type mintCall struct {
	roomIDStart, roomIDEnd int64
	startTs, endTs         int64
	roomType               uint8
	priceWei               *big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		transferRes: &roomtoken.TxResult{TxHash: "0xtransfer", Mined: true, Success: true, BlockNumber: 100, GasUsed: 21000},
		setUsedRes:  &roomtoken.TxResult{TxHash: "0xused", Mined: true, Success: true, BlockNumber: 101, GasUsed: 21000},
		mintRes:     &roomtoken.TxResult{TxHash: "0xmint", Mined: true, Success: true, BlockNumber: 102, GasUsed: 500000},
	}
}

// addRoomDay 添加一条可解析的链上记录
func (f *fakeChain) addRoomDay(roomID int64, year int, month, day int, roomType, status uint8, priceWei int64, owner string) {
	dateNum := int64(year)*10000 + int64(month)*100 + int64(day)
	f.records = append(f.records, roomtoken.RoomDayRecord{
		RoomId:        big.NewInt(roomID),
		Date:          big.NewInt(dateNum), // 测试里不关心真实时间戳
		Year:          uint16(year),
		Month:         uint8(month),
		Day:           uint8(day),
		RoomType:      roomType,
		PricePerNight: big.NewInt(priceWei),
		Status:        status,
		TokenId:       big.NewInt(dateNum*1000 + roomID),
		Owner:         common.HexToAddress(owner),
	})
}

// setRoomDay 改写已有记录的状态与持有人，模拟链上状态迁移
func (f *fakeChain) setRoomDay(tokenID int64, status uint8, owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].TokenId.Int64() == tokenID {
			f.records[i].Status = status
			f.records[i].Owner = common.HexToAddress(owner)
		}
	}
}

func (f *fakeChain) GetAllRoomDays(ctx context.Context, offset, limit int64) ([]roomtoken.RoomDayRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAllCalls = append(f.getAllCalls, offset)
	if f.readErr != nil {
		return nil, f.readErr
	}
	if offset >= int64(len(f.records)) {
		return nil, nil
	}
	end := offset + limit
	if end > int64(len(f.records)) {
		end = int64(len(f.records))
	}
	page := make([]roomtoken.RoomDayRecord, end-offset)
	copy(page, f.records[offset:end])
	return page, nil
}

func (f *fakeChain) GetTotals(ctx context.Context) ([]roomtoken.TotalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.totals, nil
}

func (f *fakeChain) MintMultipleRoomDays(ctx context.Context, roomIDStart, roomIDEnd int64, startTs, endTs int64, roomType uint8, priceWei *big.Int) (*roomtoken.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintCalls = append(f.mintCalls, mintCall{roomIDStart, roomIDEnd, startTs, endTs, roomType, priceWei})
	if f.mintErr != nil {
		return f.mintRes, f.mintErr
	}
	return f.mintRes, nil
}

func (f *fakeChain) TransferRoomDayMultiple(ctx context.Context, tokenIDs []int64, value *big.Int) (*roomtoken.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, len(tokenIDs))
	copy(ids, tokenIDs)
	f.transferCalls = append(f.transferCalls, ids)
	f.transferValues = append(f.transferValues, new(big.Int).Set(value))
	if f.transferErr != nil {
		return f.transferRes, f.transferErr
	}
	return f.transferRes, nil
}

func (f *fakeChain) SetToUsed(ctx context.Context, tokenID int64) (*roomtoken.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setUsedCalls = append(f.setUsedCalls, tokenID)
	if f.setUsedErr != nil {
		return f.setUsedRes, f.setUsedErr
	}
	return f.setUsedRes, nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash string) (*roomtoken.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receiptRes != nil {
		return f.receiptRes, nil
	}
	return &roomtoken.TxResult{TxHash: txHash}, nil
}
