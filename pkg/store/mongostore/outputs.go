package mongostore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iotaledger/chronicle/pkg/ledger"
	"github.com/iotaledger/chronicle/pkg/store"
)

// InsertUnspentOutputs performs an ordered=false bulk insert, ignoring
// duplicate-key errors on _id so overlapping batches from a resumed backfill
// do not stall (spec.md §4.4).
func (s *Store) InsertUnspentOutputs(ctx context.Context, batch []ledger.LedgerOutput) error {
	if len(batch) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(batch))
	for i := range batch {
		d := ledger.FromLedgerOutput(&batch[i])
		docs = append(docs, toBSON(&d))
	}
	_, err := s.outputs.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			for _, we := range bwe.WriteErrors {
				if we.Code != 11000 { // duplicate key
					return fmt.Errorf("mongostore: insert unspent outputs: %w", err)
				}
			}
			return nil
		}
		return fmt.Errorf("mongostore: insert unspent outputs: %w", err)
	}
	return nil
}

// UpdateSpentOutputs upserts spend metadata for a batch in a single bulk
// command. Each write is keyed by _id and only sets spent_metadata if unset;
// on an output that is already spent the upsert fails with a duplicate-key
// error, which is ignored, preserving invariant I2 (spend idempotence) even
// under retried batches.
func (s *Store) UpdateSpentOutputs(ctx context.Context, batch []ledger.LedgerSpent) error {
	if len(batch) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(batch))
	for _, spent := range batch {
		doc := ledger.FromLedgerOutput(&spent.Output)
		doc.ApplySpend(&spent)
		b := toBSON(&doc)
		filter := bson.M{"_id": b.ID, "metadata.spent_metadata": bson.M{"$exists": false}}
		update := bson.M{"$set": bson.M{"metadata.spent_metadata": b.Metadata.SpentMetadata}}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}
	_, err := s.outputs.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			for _, we := range bwe.WriteErrors {
				if we.Code != 11000 { // duplicate key
					return fmt.Errorf("mongostore: update spent outputs: %w", err)
				}
			}
			return nil
		}
		return fmt.Errorf("mongostore: update spent outputs: %w", err)
	}
	return nil
}

// EnsureIndexes creates the full index set idempotently (spec.md §4.4):
// partial indexes on the detail fields each indexer query filters by, scoped
// to "still exists" (the field is present) the way original_source's
// create_indexes does to keep the index small relative to the full
// collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	partial := func(field string) *options.IndexOptions {
		return options.Index().SetPartialFilterExpression(bson.M{field: bson.M{"$exists": true}})
	}
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "metadata.slot_booked", Value: 1}}},
		{Keys: bson.D{{Key: "metadata.spent_metadata.slot_spent", Value: 1}}},
		{Keys: bson.D{{Key: "details.address", Value: 1}}, Options: partial("details.address")},
		{Keys: bson.D{{Key: "details.sender", Value: 1}}, Options: partial("details.sender")},
		{Keys: bson.D{{Key: "details.issuer", Value: 1}}, Options: partial("details.issuer")},
		{Keys: bson.D{{Key: "details.tag", Value: 1}}, Options: partial("details.tag")},
		{Keys: bson.D{{Key: "details.governor_address", Value: 1}}, Options: partial("details.governor_address")},
		{Keys: bson.D{{Key: "details.indexed_id", Value: 1}}, Options: partial("details.indexed_id")},
		{Keys: bson.D{{Key: "details.foundry_id", Value: 1}}, Options: partial("details.foundry_id")},
	}
	_, err := s.outputs.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("mongostore: ensure output indexes: %w", err)
	}
	return nil
}

func (s *Store) GetOutput(ctx context.Context, id ledger.OutputID) (*ledger.OutputDocument, error) {
	var b bsonOutputDocument
	err := s.outputs.FindOne(ctx, bson.M{"_id": hexOf(id[:])}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get output: %w", err)
	}
	doc, err := fromBSON(b)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) GetOutputWithMetadata(ctx context.Context, id ledger.OutputID, ledgerIndex ledger.SlotIndex) (*ledger.OutputDocument, error) {
	doc, err := s.GetOutput(ctx, id)
	if err != nil || doc == nil {
		return doc, err
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

// unspentAtFilter is the $match original_source uses throughout its
// analytics/balance queries: booked at or before ledgerIndex, and either
// never spent or spent strictly after it.
func unspentAtFilter(ledgerIndex ledger.SlotIndex) bson.M {
	return bson.M{
		"metadata.slot_booked": bson.M{"$lte": uint32(ledgerIndex)},
		"$or": []bson.M{
			{"metadata.spent_metadata": bson.M{"$exists": false}},
			{"metadata.spent_metadata.slot_spent": bson.M{"$gt": uint32(ledgerIndex)}},
		},
	}
}

// outputValueSumExpr is the amount-minus-SDRUC aggregation expression shared
// by every balance-style query (spec.md §4.6: "output_amount = amount -
// SDRUC.amount"), clamped at 0 since SDRUC never exceeds amount by
// construction.
var outputValueSumExpr = bson.M{"$max": bson.A{
	0,
	bson.M{"$subtract": bson.A{
		"$details.amount",
		bson.M{"$ifNull": bson.A{"$details.storage_deposit_return.amount", 0}},
	}},
}}

func (s *Store) GetUnspentOutputStream(ctx context.Context, ledgerIndex ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	cur, err := s.outputs.Find(ctx, unspentAtFilter(ledgerIndex))
	if err != nil {
		return nil, fmt.Errorf("mongostore: unspent output stream: %w", err)
	}
	return s.streamCursor(ctx, cur), nil
}

func (s *Store) GetCreatedOutputs(ctx context.Context, slot ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	cur, err := s.outputs.Find(ctx, bson.M{"metadata.slot_booked": uint32(slot)})
	if err != nil {
		return nil, fmt.Errorf("mongostore: created outputs: %w", err)
	}
	return s.streamCursor(ctx, cur), nil
}

func (s *Store) GetConsumedOutputs(ctx context.Context, slot ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	cur, err := s.outputs.Find(ctx, bson.M{"metadata.spent_metadata.slot_spent": uint32(slot)})
	if err != nil {
		return nil, fmt.Errorf("mongostore: consumed outputs: %w", err)
	}
	return s.streamCursor(ctx, cur), nil
}

func (s *Store) streamCursor(ctx context.Context, cur *mongo.Cursor) <-chan store.OutputStreamItem {
	ch := make(chan store.OutputStreamItem)
	go func() {
		defer close(ch)
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var b bsonOutputDocument
			if err := cur.Decode(&b); err != nil {
				select {
				case ch <- store.OutputStreamItem{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			doc, err := fromBSON(b)
			if err != nil {
				select {
				case ch <- store.OutputStreamItem{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case ch <- store.OutputStreamItem{Document: doc}:
			case <-ctx.Done():
				return
			}
		}
		if err := cur.Err(); err != nil {
			select {
			case ch <- store.OutputStreamItem{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// GetUTXOChanges returns nil, nil once slot is beyond ledgerIndex, matching
// the "nothing to report yet" contract in spec.md §4.4.
func (s *Store) GetUTXOChanges(ctx context.Context, slot, ledgerIndex ledger.SlotIndex) (*store.UTXOChanges, error) {
	if slot > ledgerIndex {
		return nil, nil
	}
	createdCur, err := s.outputs.Find(ctx, bson.M{"metadata.slot_booked": uint32(slot)})
	if err != nil {
		return nil, fmt.Errorf("mongostore: utxo changes created: %w", err)
	}
	var created []ledger.OutputID
	for createdCur.Next(ctx) {
		var b bsonOutputDocument
		if err := createdCur.Decode(&b); err != nil {
			createdCur.Close(ctx)
			return nil, err
		}
		id, err := decodeHexID(b.ID)
		if err != nil {
			createdCur.Close(ctx)
			return nil, err
		}
		created = append(created, id)
	}
	createdCur.Close(ctx)

	consumedCur, err := s.outputs.Find(ctx, bson.M{"metadata.spent_metadata.slot_spent": uint32(slot)})
	if err != nil {
		return nil, fmt.Errorf("mongostore: utxo changes consumed: %w", err)
	}
	var consumed []ledger.OutputID
	for consumedCur.Next(ctx) {
		var b bsonOutputDocument
		if err := consumedCur.Decode(&b); err != nil {
			consumedCur.Close(ctx)
			return nil, err
		}
		id, err := decodeHexID(b.ID)
		if err != nil {
			consumedCur.Close(ctx)
			return nil, err
		}
		consumed = append(consumed, id)
	}
	consumedCur.Close(ctx)

	return &store.UTXOChanges{CreatedIDs: created, ConsumedIDs: consumed}, nil
}

func decodeHexID(s string) (ledger.OutputID, error) {
	var id ledger.OutputID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// GetAddressBalance implements the direct formula in spec.md §4.6/invariant
// I5 as a single aggregation: match every output either owned by addr or
// naming addr as an expiration return address, then let $cond pick which
// branch of the formula each matched output contributes to rather than
// issuing two separate queries.
func (s *Store) GetAddressBalance(ctx context.Context, addr ledger.Address, ledgerIndex ledger.SlotIndex) (store.AddressBalance, error) {
	match := unspentAtFilter(ledgerIndex)
	match["$and"] = bson.A{
		bson.M{"$or": bson.A{
			bson.M{"details.address": addr.String()},
			bson.M{"details.expiration.return_address": addr.String()},
		}},
	}

	ledgerIdx := uint32(ledgerIndex)
	addrStr := addr.String()

	isOwner := bson.M{"$eq": bson.A{"$details.address", addrStr}}
	hasExpiration := bson.M{"$ne": bson.A{bson.M{"$ifNull": bson.A{"$details.expiration.slot", nil}}, nil}}
	expirationPassed := bson.M{"$and": bson.A{hasExpiration, bson.M{"$lte": bson.A{"$details.expiration.slot", ledgerIdx}}}}
	ownerNotExpired := bson.M{"$and": bson.A{isOwner, bson.M{"$not": expirationPassed}}}
	isReturnee := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$details.expiration.return_address", addrStr}},
		expirationPassed,
	}}
	hasTimelock := bson.M{"$ne": bson.A{bson.M{"$ifNull": bson.A{"$details.timelock", nil}}, nil}}
	timelockElapsed := bson.M{"$or": bson.A{
		bson.M{"$not": hasTimelock},
		bson.M{"$lte": bson.A{"$details.timelock", ledgerIdx}},
	}}

	contributesTotal := bson.M{"$or": bson.A{ownerNotExpired, isReturnee}}
	contributesAvailable := bson.M{"$or": bson.A{
		bson.M{"$and": bson.A{ownerNotExpired, timelockElapsed}},
		isReturnee,
	}}

	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{
			"_id":       nil,
			"total":     bson.M{"$sum": bson.M{"$cond": bson.A{contributesTotal, outputValueSumExpr, 0}}},
			"available": bson.M{"$sum": bson.M{"$cond": bson.A{contributesAvailable, outputValueSumExpr, 0}}},
		}},
	}
	cur, err := s.outputs.Aggregate(ctx, pipeline)
	if err != nil {
		return store.AddressBalance{}, fmt.Errorf("mongostore: address balance: %w", err)
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		return store.AddressBalance{LedgerIndex: ledgerIndex}, nil
	}
	var row struct {
		Total     uint64 `bson:"total"`
		Available uint64 `bson:"available"`
	}
	if err := cur.Decode(&row); err != nil {
		return store.AddressBalance{}, err
	}
	return store.AddressBalance{Total: row.Total, Available: row.Available, LedgerIndex: ledgerIndex}, nil
}

// GetRichestAddresses mirrors original_source's $group/$sort/$limit pipeline
// verbatim in shape (see db/collections/outputs/mod.rs get_richest_addresses).
func (s *Store) GetRichestAddresses(ctx context.Context, ledgerIndex ledger.SlotIndex, topN int) ([]store.RichAddress, error) {
	match := unspentAtFilter(ledgerIndex)
	match["details.address"] = bson.M{"$exists": true}
	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{"_id": "$details.address", "balance": bson.M{"$sum": outputValueSumExpr}}},
		bson.M{"$sort": bson.M{"balance": -1}},
		bson.M{"$limit": int64(topN)},
	}
	cur, err := s.outputs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongostore: richest addresses: %w", err)
	}
	defer cur.Close(ctx)
	var out []store.RichAddress
	for cur.Next(ctx) {
		var row struct {
			ID      string `bson:"_id"`
			Balance uint64 `bson:"balance"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		// row.ID is details.address's string form (kind-prefixed hex, written
		// by Address.String); ParseAddress reverses it back into a usable,
		// Equal-comparable Address rather than leaving it an opaque string.
		addr, err := ledger.ParseAddress(row.ID)
		if err != nil {
			return nil, fmt.Errorf("mongostore: richest addresses: %w", err)
		}
		out = append(out, store.RichAddress{Address: addr, Balance: row.Balance})
	}
	return out, nil
}

// GetTokenDistribution mirrors original_source's two-stage $group pipeline:
// per-address balances, then bucketed by floor(log10(balance)).
func (s *Store) GetTokenDistribution(ctx context.Context, ledgerIndex ledger.SlotIndex) ([]store.TokenDistributionBucket, error) {
	match := unspentAtFilter(ledgerIndex)
	match["details.address"] = bson.M{"$exists": true}
	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{"_id": "$details.address", "balance": bson.M{"$sum": outputValueSumExpr}}},
		bson.M{"$set": bson.M{"bucket": bson.M{"$floor": bson.M{"$log10": bson.M{"$max": bson.A{"$balance", 1}}}}}},
		bson.M{"$group": bson.M{
			"_id":           "$bucket",
			"address_count": bson.M{"$sum": 1},
			"total_amount":  bson.M{"$sum": "$balance"},
		}},
		bson.M{"$sort": bson.M{"_id": 1}},
	}
	cur, err := s.outputs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongostore: token distribution: %w", err)
	}
	defer cur.Close(ctx)
	var out []store.TokenDistributionBucket
	for cur.Next(ctx) {
		var row struct {
			Bucket       float64 `bson:"_id"`
			AddressCount uint64  `bson:"address_count"`
			TotalAmount  uint64  `bson:"total_amount"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		lower := uint64(1)
		for i := 0; i < int(row.Bucket); i++ {
			lower *= 10
		}
		out = append(out, store.TokenDistributionBucket{
			RangeLowerBound: lower,
			AddressCount:    row.AddressCount,
			TotalAmount:     row.TotalAmount,
		})
	}
	return out, nil
}

// QueryIndexed compiles an IndexedQuery into a single $and-chained $match,
// never interleaving filters into the same top-level key, so the query
// planner always has one predictable compound shape to pick an index for
// (spec.md §4.4.1).
func (s *Store) QueryIndexed(ctx context.Context, kind ledger.OutputKind, q store.IndexedQuery, ledgerIndex ledger.SlotIndex) (<-chan store.OutputStreamItem, error) {
	and := bson.A{unspentAtFilter(ledgerIndex), bson.M{"details.kind": uint8(kind)}}
	if q.Address != nil {
		and = append(and, bson.M{"details.address": q.Address.String()})
	}
	if q.Issuer != nil {
		and = append(and, bson.M{"details.issuer": q.Issuer.String()})
	}
	if q.Sender != nil {
		and = append(and, bson.M{"details.sender": q.Sender.String()})
	}
	if q.Tag != nil {
		and = append(and, bson.M{"details.tag": q.Tag})
	}
	if q.Governor != nil {
		and = append(and, bson.M{"details.governor_address": q.Governor.String()})
	}
	if q.NativeTokens != nil && q.NativeTokens.Has {
		and = append(and, bson.M{"details.native_token_ids": bson.M{"$exists": true, "$ne": bson.A{}}})
	}
	if q.StorageDepositReturn != nil {
		if q.StorageDepositReturn.Has {
			and = append(and, bson.M{"details.storage_deposit_return": bson.M{"$exists": true}})
		}
		if q.StorageDepositReturn.ReturnAddress != nil {
			and = append(and, bson.M{"details.storage_deposit_return.return_address": q.StorageDepositReturn.ReturnAddress.String()})
		}
	}
	if q.Timelock != nil {
		timelockRange := bson.M{}
		if q.Timelock.Before != nil {
			timelockRange["$lt"] = uint32(*q.Timelock.Before)
		}
		if q.Timelock.After != nil {
			timelockRange["$gt"] = uint32(*q.Timelock.After)
		}
		if len(timelockRange) > 0 {
			and = append(and, bson.M{"details.timelock": timelockRange})
		} else {
			and = append(and, bson.M{"details.timelock": bson.M{"$exists": true}})
		}
	}
	if q.Expiration != nil {
		if q.Expiration.Has {
			and = append(and, bson.M{"details.expiration": bson.M{"$exists": true}})
		}
		if q.Expiration.ReturnAddress != nil {
			and = append(and, bson.M{"details.expiration.return_address": q.Expiration.ReturnAddress.String()})
		}
		expRange := bson.M{}
		if q.Expiration.Before != nil {
			expRange["$lt"] = uint32(*q.Expiration.Before)
		}
		if q.Expiration.After != nil {
			expRange["$gt"] = uint32(*q.Expiration.After)
		}
		if len(expRange) > 0 {
			and = append(and, bson.M{"details.expiration.slot": expRange})
		}
	}
	if q.Created != nil {
		bookedRange := bson.M{}
		if q.Created.Before != nil {
			bookedRange["$lt"] = uint32(*q.Created.Before)
		}
		if q.Created.After != nil {
			bookedRange["$gt"] = uint32(*q.Created.After)
		}
		if len(bookedRange) > 0 {
			and = append(and, bson.M{"metadata.slot_booked": bookedRange})
		}
	}
	if q.Cursor != nil {
		and = append(and, bson.M{"_id": bson.M{"$gt": hexOf(q.Cursor[:])}})
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if q.PageSize > 0 {
		findOpts.SetLimit(int64(q.PageSize))
	}
	cur, err := s.outputs.Find(ctx, bson.M{"$and": and}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: query indexed: %w", err)
	}
	return s.streamCursor(ctx, cur), nil
}
