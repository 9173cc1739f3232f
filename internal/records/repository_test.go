package records

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

type mockDynamo struct {
	putInput   *dynamodb.PutItemInput
	queryInput *dynamodb.QueryInput
	queryItems []map[string]types.AttributeValue
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = in
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInput = in
	return &dynamodb.QueryOutput{Items: m.queryItems}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

func TestAddNormalizesRecordType(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewRepository(store.NewTable(mock, "pbhms", logging.Default()), logging.Default())

	rec := &Record{
		RecordID:   "r1",
		PatientID:  "p1",
		ProviderID: "pr1",
		RecordType: "medication",
		Details:    map[string]any{"name": "aspirin"},
	}
	if err := repo.Add(context.Background(), rec); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.RecordType != "MEDICATION" {
		t.Errorf("recordType = %s, want MEDICATION", rec.RecordType)
	}
	if rec.PK != "PATIENT#p1" || rec.SK != "RECORD#MEDICATION#r1" {
		t.Errorf("keys = %s/%s", rec.PK, rec.SK)
	}
	if rec.CreatedAt == "" {
		t.Error("expected createdAt to be stamped")
	}
}

func TestAddRequiresFields(t *testing.T) {
	repo := NewRepository(store.NewTable(&mockDynamo{}, "pbhms", logging.Default()), logging.Default())
	if err := repo.Add(context.Background(), &Record{PatientID: "p1"}); err == nil {
		t.Fatal("expected error for incomplete record")
	}
}

func TestListForPatientQueriesRecordPrefix(t *testing.T) {
	item, _ := attributevalue.MarshalMap(Record{RecordID: "r1", PatientID: "p1", RecordType: "ALLERGY"})
	mock := &mockDynamo{queryItems: []map[string]types.AttributeValue{item}}
	repo := NewRepository(store.NewTable(mock, "pbhms", logging.Default()), logging.Default())

	items, err := repo.ListForPatient(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListForPatient: %v", err)
	}
	if len(items) != 1 || items[0].RecordType != "ALLERGY" {
		t.Fatalf("items = %+v", items)
	}
	values := mock.queryInput.ExpressionAttributeValues
	if got := values[":sk"].(*types.AttributeValueMemberS).Value; got != store.RecordSKPrefix {
		t.Errorf(":sk = %s", got)
	}
}
