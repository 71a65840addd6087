package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fiscus-api/internal/domain"
)

// commitAttempts bounds how often a write is retried when another write of
// the same user or record wins the race.
const commitAttempts = 5

// headSeq is the sort key of the per-user head item in the sync log. Its
// last attribute holds the highest committed sync_seq.
const headSeq int64 = 0

// TransactionRepo stores ledger entries.
//
// The transactions table (PK transaction_id, GSI uid-sync_seq-index) holds the
// current row of every record. The sync log (PK uid, SK sync_seq) holds the
// user's head item plus a copy of each live row under its current sync_seq.
// Every write commits the row, its log copy and the head bump in one
// TransactWriteItems, conditioned on the head value it read. Sequences
// therefore commit in order, and a consistent query on the log never returns
// a sequence while a lower one is still in flight.
type TransactionRepo struct {
	client    API
	tableName string
	logTable  string
}

func NewTransactionRepo(client API, tableName, logTable string) *TransactionRepo {
	return &TransactionRepo{client: client, tableName: tableName, logTable: logTable}
}

// mutation builds the new row from the current one (nil when absent).
type mutation func(old map[string]types.AttributeValue) (map[string]types.AttributeValue, error)

// Put creates or replaces tx and returns it with its new sync_seq.
// Replacing a row owned by another user fails with ErrUnauthorized.
func (r *TransactionRepo) Put(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	return r.commit(ctx, tx.UserID, tx.ID, func(old map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
		if old != nil && ownerOf(old) != tx.UserID {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, domain.ErrUnauthorized)
		}
		item, err := attributevalue.MarshalMap(tx)
		if err != nil {
			return nil, fmt.Errorf("marshal transaction: %w", err)
		}
		return item, nil
	})
}

// Modify applies set to the transaction id owned by userID and returns the
// stored result. A missing row yields ErrNotFound; a row owned by someone
// else yields ErrUnauthorized.
func (r *TransactionRepo) Modify(ctx context.Context, userID, id string, set map[string]interface{}) (*domain.Transaction, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	return r.commit(ctx, userID, id, func(old map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
		if old == nil {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		if ownerOf(old) != userID {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrUnauthorized)
		}
		item := make(map[string]types.AttributeValue, len(old)+len(set))
		for k, v := range old {
			item[k] = v
		}
		for k, v := range set {
			av, err := attributevalue.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal field %s: %w", k, err)
			}
			item[k] = av
		}
		return item, nil
	})
}

func (r *TransactionRepo) commit(ctx context.Context, userID, id string, mutate mutation) (*domain.Transaction, error) {
	for attempt := 1; ; attempt++ {
		last, err := r.head(ctx, userID)
		if err != nil {
			return nil, err
		}
		old, err := r.current(ctx, id)
		if err != nil {
			return nil, err
		}
		item, err := mutate(old)
		if err != nil {
			return nil, err
		}
		next := last + 1
		item[fieldSyncSeq] = number(next)

		_, err = r.client.TransactWriteItems(ctx, r.writeSet(userID, last, next, old, item))
		if err == nil {
			var tx domain.Transaction
			if err := attributevalue.UnmarshalMap(item, &tx); err != nil {
				return nil, fmt.Errorf("unmarshal transaction: %w", err)
			}
			return &tx, nil
		}
		if !isCommitConflict(err) || attempt == commitAttempts {
			return nil, storeErr("commit transaction", err)
		}
		slog.DebugContext(ctx, "sync commit lost a race, retrying",
			"user_id", userID, "transaction_id", id, "attempt", attempt)
	}
}

// writeSet bumps the head from last to next, writes the row and its log copy,
// and drops the log copy of the version being replaced.
func (r *TransactionRepo) writeSet(userID string, last, next int64, old, item map[string]types.AttributeValue) *dynamodb.TransactWriteItemsInput {
	row := &types.Put{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	if old == nil {
		row.ConditionExpression = aws.String("attribute_not_exists(#id)")
		row.ExpressionAttributeNames = map[string]string{"#id": fieldTransactionID}
	} else {
		row.ConditionExpression = aws.String("#seq = :prev")
		row.ExpressionAttributeNames = map[string]string{"#seq": fieldSyncSeq}
		row.ExpressionAttributeValues = map[string]types.AttributeValue{":prev": old[fieldSyncSeq]}
	}

	items := []types.TransactWriteItem{
		{Update: &types.Update{
			TableName:                aws.String(r.logTable),
			Key:                      logKey(userID, headSeq),
			UpdateExpression:         aws.String("SET #last = :next"),
			ConditionExpression:      aws.String("attribute_not_exists(#last) OR #last = :last"),
			ExpressionAttributeNames: map[string]string{"#last": fieldLast},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":next": number(next),
				":last": number(last),
			},
		}},
		{Put: row},
		{Put: &types.Put{TableName: aws.String(r.logTable), Item: item}},
	}
	if old != nil {
		if prev, ok := old[fieldSyncSeq].(*types.AttributeValueMemberN); ok {
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(r.logTable),
				Key: map[string]types.AttributeValue{
					fieldUID:     &types.AttributeValueMemberS{Value: userID},
					fieldSyncSeq: prev,
				},
			}})
		}
	}
	return &dynamodb.TransactWriteItemsInput{TransactItems: items}
}

// head returns the highest committed sync_seq of userID, 0 before the first write.
func (r *TransactionRepo) head(ctx context.Context, userID string) (int64, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.logTable),
		Key:            logKey(userID, headSeq),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, storeErr("get sync head", err)
	}
	av, ok := out.Item[fieldLast]
	if !ok {
		return 0, nil
	}
	var last int64
	if err := attributevalue.Unmarshal(av, &last); err != nil {
		return 0, fmt.Errorf("sync head: %w: %w", domain.ErrStoreFailure, err)
	}
	return last, nil
}

// current returns the stored row for id, or nil when there is none.
func (r *TransactionRepo) current(ctx context.Context, id string) (map[string]types.AttributeValue, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldTransactionID, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get transaction", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// ListActive returns userID's live transactions in ascending sync_seq order.
// It reads the GSI, so a write may take a moment to appear.
func (r *TransactionRepo) ListActive(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUIDSyncSeq),
		KeyConditionExpression: aws.String("#uid = :u"),
		FilterExpression:       aws.String("attribute_not_exists(#del)"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUID,
			"#del": fieldDeletedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(true),
	})
}

// ListChanged returns every transaction of userID, tombstones included, whose
// sync_seq is above after, in ascending sync_seq order. It reads the sync log
// with a consistent query.
func (r *TransactionRepo) ListChanged(ctx context.Context, userID string, after int64) ([]domain.Transaction, error) {
	if after < headSeq {
		after = headSeq
	}
	txs, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.logTable),
		KeyConditionExpression: aws.String("#uid = :u AND #seq > :w"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUID,
			"#seq": fieldSyncSeq,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
			":w": number(after),
		},
		ConsistentRead:   aws.Bool(true),
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return latestOnly(txs), nil
}

func (r *TransactionRepo) query(ctx context.Context, input *dynamodb.QueryInput) ([]domain.Transaction, error) {
	txs := []domain.Transaction{}
	p := dynamodb.NewQueryPaginator(r.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("query transactions", err)
		}
		var batch []domain.Transaction
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal transactions: %w", err)
		}
		txs = append(txs, batch...)
	}
	return txs, nil
}

// latestOnly drops older copies of a record that was rewritten while the log
// pages were being read.
func latestOnly(txs []domain.Transaction) []domain.Transaction {
	newest := make(map[string]int64, len(txs))
	for _, tx := range txs {
		if tx.SyncSeq > newest[tx.ID] {
			newest[tx.ID] = tx.SyncSeq
		}
	}
	out := txs[:0]
	for _, tx := range txs {
		if tx.SyncSeq == newest[tx.ID] {
			out = append(out, tx)
		}
	}
	return out
}

func ownerOf(item map[string]types.AttributeValue) string {
	if s, ok := item[fieldUID].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func number(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func logKey(userID string, seq int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		fieldUID:     &types.AttributeValueMemberS{Value: userID},
		fieldSyncSeq: number(seq),
	}
}

// isCommitConflict reports whether a TransactWriteItems call was cancelled
// because a condition no longer held or a concurrent transaction touched the
// same items. Both are resolved by re-reading and trying again.
func isCommitConflict(err error) bool {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			switch aws.ToString(reason.Code) {
			case "ConditionalCheckFailed", "TransactionConflict":
				return true
			}
		}
		return false
	}
	var conflict *types.TransactionConflictException
	return errors.As(err, &conflict)
}
