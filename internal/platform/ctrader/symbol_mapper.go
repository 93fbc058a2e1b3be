package ctrader

import (
	"strconv"
	"sync"

	"trading-journal/internal/normalize"
)

type symbolInfo struct {
	name    string
	lotSize int64
}

// symbolMapper resolves cTrader symbol ids to names and lot sizes
type symbolMapper struct {
	byID map[int64]symbolInfo
	mu   sync.RWMutex
}

func newSymbolMapper() *symbolMapper {
	return &symbolMapper{
		byID: make(map[int64]symbolInfo),
	}
}

func (sm *symbolMapper) add(id int64, name string, lotSize int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if lotSize <= 0 {
		lotSize = normalize.CTraderDefaultLotSize
	}
	sm.byID[id] = symbolInfo{name: name, lotSize: lotSize}
}

// name returns the symbol name, or the numeric id when the symbol is unknown
func (sm *symbolMapper) name(id int64) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if s, ok := sm.byID[id]; ok {
		return s.name
	}
	return strconv.FormatInt(id, 10)
}

func (sm *symbolMapper) lotSize(id int64) int64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if s, ok := sm.byID[id]; ok {
		return s.lotSize
	}
	return normalize.CTraderDefaultLotSize
}

func (sm *symbolMapper) len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.byID)
}

func (sm *symbolMapper) clear() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.byID = make(map[int64]symbolInfo)
}
