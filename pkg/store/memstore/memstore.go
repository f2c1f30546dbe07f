// Package memstore is an in-memory OutputStore/CommitmentStore/
// ApplicationStateStore used by tests. It implements
// the exact same read semantics as pkg/store/mongostore (ledger-index filtering,
// upsert-on-spend, the §4.6 balance formula) without a real database, so tests
// can assert invariants I1-I5 and the §8 testable properties directly.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/store"
)

// Store is an in-memory implementation of the full persisted-state layout
// (spec.md §6).
type Store struct {
	mu sync.RWMutex

	outputs     map[ledger.OutputID]*ledger.OutputDocument
	bySlotBooked map[ledger.SlotIndex][]ledger.OutputID
	bySlotSpent  map[ledger.SlotIndex][]ledger.OutputID

	commitments map[ledger.SlotIndex]ledger.Commitment
	blocks      map[ledger.BlockID]store.BlockRecord

	appState store.ApplicationState

	protocolUpdates []protocolUpdate
	nodeConfig      *ledger.ProtocolParametersHistory
}

type protocolUpdate struct {
	effectiveSlot ledger.SlotIndex
	params        ledger.ProtocolParameters
}

// New builds an empty in-memory store.
func New() *Store {
	return &Store{
		outputs:      make(map[ledger.OutputID]*ledger.OutputDocument),
		bySlotBooked: make(map[ledger.SlotIndex][]ledger.OutputID),
		bySlotSpent:  make(map[ledger.SlotIndex][]ledger.OutputID),
		commitments:  make(map[ledger.SlotIndex]ledger.Commitment),
		blocks:       make(map[ledger.BlockID]store.BlockRecord),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error { return nil }

func (s *Store) InsertUnspentOutputs(ctx context.Context, batch []ledger.LedgerOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lo := range batch {
		if _, exists := s.outputs[lo.OutputID]; exists {
			continue // duplicate-ignore, matches ordered=false bulk insert semantics
		}
		doc := ledger.FromLedgerOutput(&lo)
		s.outputs[lo.OutputID] = &doc
		s.bySlotBooked[lo.SlotBooked] = append(s.bySlotBooked[lo.SlotBooked], lo.OutputID)
	}
	return nil
}

func (s *Store) UpdateSpentOutputs(ctx context.Context, batch []ledger.LedgerSpent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, spent := range batch {
		doc, ok := s.outputs[spent.Output.OutputID]
		if !ok {
			// Upsert path: the created side may not have been seen (e.g. created
			// and spent in slots before this store's resume cursor). Materialize
			// it now from the spend's embedded output record.
			created := ledger.FromLedgerOutput(&spent.Output)
			doc = &created
			s.outputs[spent.Output.OutputID] = doc
			s.bySlotBooked[spent.Output.SlotBooked] = append(s.bySlotBooked[spent.Output.SlotBooked], spent.Output.OutputID)
		}
		doc.ApplySpend(&spent)
		s.bySlotSpent[spent.SlotSpent] = append(s.bySlotSpent[spent.SlotSpent], spent.Output.OutputID)
	}
	return nil
}

func (s *Store) GetOutput(ctx context.Context, id ledger.OutputID) (*ledger.OutputDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.outputs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *Store) GetOutputWithMetadata(ctx context.Context, id ledger.OutputID, ledgerIndex ledger.SlotIndex) (*ledger.OutputDocument, error) {
	doc, err := s.GetOutput(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	if doc.Metadata.SlotBooked > ledgerIndex {
		return nil, nil
	}
	return doc, nil
}

func (s *Store) GetOutputMetadata(ctx context.Context, id ledger.OutputID, ledgerIndex ledger.SlotIndex) (*ledger.OutputMetadata, error) {
	doc, err := s.GetOutputWithMetadata(ctx, id, ledgerIndex)
	if err != nil || doc == nil {
		return nil, err
	}
	return &doc.Metadata, nil
}

// isUnspentAt reports whether a document is unspent as of ledgerIndex: booked at
// or before it, and either never spent or spent strictly after it.
func isUnspentAt(doc *ledger.OutputDocument, ledgerIndex ledger.SlotIndex) bool {
	if doc.Metadata.SlotBooked > ledgerIndex {
		return false
	}
	if doc.Metadata.SpentMetadata == nil {
		return true
	}
	return doc.Metadata.SpentMetadata.SlotSpent > ledgerIndex
}

func (s *Store) snapshot() []ledger.OutputDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]ledger.OutputDocument, 0, len(s.outputs))
	for _, d := range s.outputs {
		docs = append(docs, *d)
	}
	sort.Slice(docs, func(i, j int) bool {
		return string(docs[i].ID[:]) < string(docs[j].ID[:])
	})
	return docs
}

func (s *Store) GetUnspentOutputStream(ctx context.Context, ledgerIndex ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	docs := s.snapshot()
	ch := make(chan store.OutputStreamItem)
	go func() {
		defer close(ch)
		for _, d := range docs {
			if !isUnspentAt(&d, ledgerIndex) {
				continue
			}
			select {
			case ch <- store.OutputStreamItem{Document: d}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *Store) idsAtSlot(index map[ledger.SlotIndex][]ledger.OutputID, slot ledger.SlotIndex) []ledger.OutputID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.OutputID(nil), index[slot]...)
}

func (s *Store) GetCreatedOutputs(ctx context.Context, slot ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	ids := s.idsAtSlot(s.bySlotBooked, slot)
	return s.streamByIDs(ctx, ids), nil
}

func (s *Store) GetConsumedOutputs(ctx context.Context, slot ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	ids := s.idsAtSlot(s.bySlotSpent, slot)
	return s.streamByIDs(ctx, ids), nil
}

func (s *Store) streamByIDs(ctx context.Context, ids []ledger.OutputID) <-chan store.OutputStreamItem {
	ch := make(chan store.OutputStreamItem)
	go func() {
		defer close(ch)
		for _, id := range ids {
			doc, err := s.GetOutput(ctx, id)
			if err != nil || doc == nil {
				continue
			}
			select {
			case ch <- store.OutputStreamItem{Document: *doc}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (s *Store) GetUTXOChanges(ctx context.Context, slot ledger.SlotIndex, ledgerIndex ledger.SlotIndex) (*store.UTXOChanges, error) {
	if slot > ledgerIndex {
		return nil, nil
	}
	created := s.idsAtSlot(s.bySlotBooked, slot)
	consumed := s.idsAtSlot(s.bySlotSpent, slot)
	return &store.UTXOChanges{CreatedIDs: created, ConsumedIDs: consumed}, nil
}

// outputValue returns amount minus any SDRUC amount, floored at 0 (invariant
// I4's "reachable-value portion").
func outputValue(o *ledger.Output) uint64 {
	amount := o.Amount
	if ret, sdrAmount, ok := o.UnlockConditions.StorageDepositReturn(); ok {
		_ = ret
		if sdrAmount >= amount {
			return 0
		}
		return amount - sdrAmount
	}
	return amount
}

// GetAddressBalance implements the direct formula in spec.md §4.6 / invariant
// I5: a single pass over unspent-at-S outputs owned by A plus expired-return
// outputs where A is the return address.
func (s *Store) GetAddressBalance(ctx context.Context, addr ledger.Address, ledgerIndex ledger.SlotIndex) (store.AddressBalance, error) {
	docs := s.snapshot()
	var total, available uint64
	for _, d := range docs {
		if !isUnspentAt(&d, ledgerIndex) {
			continue
		}
		owner, hasOwner := d.Output.OwnerAddress()
		expRet, expSlot, hasExp := d.Output.UnlockConditions.Expiration()

		if hasOwner && owner.Equal(addr) {
			expired := hasExp && expSlot <= ledgerIndex
			if !expired {
				v := outputValue(&d.Output)
				total += v
				if tl, hasTl := d.Output.UnlockConditions.Timelock(); !hasTl || tl <= ledgerIndex {
					available += v
				}
			}
		}
		if hasExp && expRet.Equal(addr) && expSlot <= ledgerIndex {
			v := outputValue(&d.Output)
			total += v
			available += v
		}
	}
	return store.AddressBalance{Total: total, Available: available, LedgerIndex: ledgerIndex}, nil
}

func (s *Store) GetRichestAddresses(ctx context.Context, ledgerIndex ledger.SlotIndex, topN int) ([]store.RichAddress, error) {
	docs := s.snapshot()
	balances := make(map[string]uint64)
	addrs := make(map[string]ledger.Address)
	for _, d := range docs {
		if !isUnspentAt(&d, ledgerIndex) {
			continue
		}
		owner, ok := d.Output.OwnerAddress()
		if !ok {
			continue
		}
		key := owner.String()
		balances[key] += outputValue(&d.Output)
		addrs[key] = owner
	}
	out := make([]store.RichAddress, 0, len(balances))
	for k, v := range balances {
		out = append(out, store.RichAddress{Address: addrs[k], Balance: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func (s *Store) GetTokenDistribution(ctx context.Context, ledgerIndex ledger.SlotIndex) ([]store.TokenDistributionBucket, error) {
	docs := s.snapshot()
	balances := make(map[string]uint64)
	for _, d := range docs {
		if !isUnspentAt(&d, ledgerIndex) {
			continue
		}
		owner, ok := d.Output.OwnerAddress()
		if !ok {
			continue
		}
		balances[owner.String()] += outputValue(&d.Output)
	}
	buckets := make(map[uint64]*store.TokenDistributionBucket)
	for _, v := range balances {
		lower := bucketLowerBound(v)
		b, ok := buckets[lower]
		if !ok {
			b = &store.TokenDistributionBucket{RangeLowerBound: lower}
			buckets[lower] = b
		}
		b.AddressCount++
		b.TotalAmount += v
	}
	out := make([]store.TokenDistributionBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RangeLowerBound < out[j].RangeLowerBound })
	return out, nil
}

// bucketLowerBound buckets a balance into its order-of-magnitude range,
// mirroring original_source's token-distribution aggregation shape.
func bucketLowerBound(v uint64) uint64 {
	if v == 0 {
		return 0
	}
	lower := uint64(1)
	for lower*10 <= v {
		lower *= 10
	}
	return lower
}

func (s *Store) QueryIndexed(ctx context.Context, kind ledger.OutputKind, q store.IndexedQuery, ledgerIndex ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	docs := s.snapshot()
	ch := make(chan store.OutputStreamItem)
	go func() {
		defer close(ch)
		matched := 0
		for _, d := range docs {
			if d.Details.Kind != kind {
				continue
			}
			if q.Cursor != nil && string(d.ID[:]) <= string(q.Cursor[:]) {
				continue
			}
			if !isUnspentAt(&d, ledgerIndex) {
				continue
			}
			if !matchesIndexedQuery(&d, q) {
				continue
			}
			if q.PageSize > 0 && matched >= q.PageSize {
				break
			}
			matched++
			select {
			case ch <- store.OutputStreamItem{Document: d}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func matchesIndexedQuery(d *ledger.OutputDocument, q store.IndexedQuery) bool {
	det := d.Details
	if q.Address != nil && (det.Address == nil || !det.Address.Equal(*q.Address)) {
		return false
	}
	if q.Issuer != nil && (det.Issuer == nil || !det.Issuer.Equal(*q.Issuer)) {
		return false
	}
	if q.Sender != nil && (det.Sender == nil || !det.Sender.Equal(*q.Sender)) {
		return false
	}
	if q.Tag != nil && string(det.Tag) != string(q.Tag) {
		return false
	}
	if q.Governor != nil && (det.GovernorAddress == nil || !det.GovernorAddress.Equal(*q.Governor)) {
		return false
	}
	if q.NativeTokens != nil && q.NativeTokens.Has && len(det.NativeTokenIDs) == 0 {
		return false
	}
	if f := q.StorageDepositReturn; f != nil {
		if f.Has && det.StorageDepositReturn == nil {
			return false
		}
		if f.ReturnAddress != nil {
			if det.StorageDepositReturn == nil || !det.StorageDepositReturn.ReturnAddress.Equal(*f.ReturnAddress) {
				return false
			}
		}
	}
	if f := q.Timelock; f != nil {
		if det.Timelock == nil {
			return false
		}
		if f.Before != nil && *det.Timelock >= *f.Before {
			return false
		}
		if f.After != nil && *det.Timelock <= *f.After {
			return false
		}
	}
	if f := q.Expiration; f != nil {
		if f.Has && det.Expiration == nil {
			return false
		}
		if det.Expiration == nil && (f.Before != nil || f.After != nil || f.ReturnAddress != nil) {
			return false
		}
		if det.Expiration != nil {
			if f.Before != nil && det.Expiration.Slot >= *f.Before {
				return false
			}
			if f.After != nil && det.Expiration.Slot <= *f.After {
				return false
			}
			if f.ReturnAddress != nil && !det.Expiration.ReturnAddress.Equal(*f.ReturnAddress) {
				return false
			}
		}
	}
	if f := q.Created; f != nil {
		if f.Before != nil && d.Metadata.SlotBooked >= *f.Before {
			return false
		}
		if f.After != nil && d.Metadata.SlotBooked <= *f.After {
			return false
		}
	}
	return true
}

// Commitment store.

func (s *Store) InsertCommitment(ctx context.Context, c ledger.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitments[c.SlotIndex] = c
	return nil
}

func (s *Store) GetLatestCommitment(ctx context.Context) (*ledger.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *ledger.Commitment
	for idx, c := range s.commitments {
		if latest == nil || idx > latest.SlotIndex {
			cp := c
			latest = &cp
		}
	}
	return latest, nil
}

func (s *Store) GetCommitment(ctx context.Context, slot ledger.SlotIndex) (*ledger.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commitments[slot]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) HasGap(ctx context.Context, from, to ledger.SlotIndex) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for slot := from + 1; slot < to; slot++ {
		if _, ok := s.commitments[slot]; !ok {
			return true, nil
		}
	}
	return false, nil
}

// Block store.

func (s *Store) InsertBlocks(ctx context.Context, batch []store.BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range batch {
		s.blocks[b.BlockID] = b
	}
	return nil
}

func (s *Store) GetBlock(ctx context.Context, id ledger.BlockID) (*store.BlockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// Application state.

func (s *Store) GetStartingIndex(ctx context.Context) (*ledger.SlotIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appState.StartingSlot, nil
}

func (s *Store) SetStartingIndex(ctx context.Context, slot ledger.SlotIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appState.StartingSlot = &slot
	return nil
}

func (s *Store) GetLastMigration(ctx context.Context) (*store.Migration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appState.LastMigration, nil
}

func (s *Store) SetLastMigration(ctx context.Context, m store.Migration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appState.LastMigration = &m
	return nil
}

func (s *Store) GetProtocolParameters(ctx context.Context) (*ledger.ProtocolParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appState.ProtocolParameters, nil
}

func (s *Store) SetProtocolParameters(ctx context.Context, p ledger.ProtocolParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appState.ProtocolParameters = &p
	return nil
}

// Protocol update / node configuration.

func (s *Store) RecordProtocolUpdate(ctx context.Context, effectiveSlot ledger.SlotIndex, p ledger.ProtocolParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolUpdates = append(s.protocolUpdates, protocolUpdate{effectiveSlot: effectiveSlot, params: p})
	return nil
}

func (s *Store) LatestProtocolUpdate(ctx context.Context) (*ledger.ProtocolParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.protocolUpdates) == 0 {
		return nil, nil
	}
	latest := s.protocolUpdates[0]
	for _, u := range s.protocolUpdates[1:] {
		if u.effectiveSlot > latest.effectiveSlot {
			latest = u
		}
	}
	p := latest.params
	return &p, nil
}

func (s *Store) SetNodeConfiguration(ctx context.Context, cfg ledger.ProtocolParametersHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeConfig = &cfg
	return nil
}

func (s *Store) GetNodeConfiguration(ctx context.Context) (*ledger.ProtocolParametersHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodeConfig, nil
}

// Sync record (schema-compatibility only, see store.SyncRecordStore doc).

func (s *Store) UpsertSyncRecord(ctx context.Context, r store.SyncRecord) error {
	return nil
}

var (
	_ store.OutputStore            = (*Store)(nil)
	_ store.CommitmentStore        = (*Store)(nil)
	_ store.BlockStore             = (*Store)(nil)
	_ store.ApplicationStateStore  = (*Store)(nil)
	_ store.ProtocolUpdateStore    = (*Store)(nil)
	_ store.NodeConfigurationStore = (*Store)(nil)
	_ store.SyncRecordStore        = (*Store)(nil)
)
