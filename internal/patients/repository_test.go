package patients

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

type mockDynamo struct {
	putInput    *dynamodb.PutItemInput
	putErr      error
	getInput    *dynamodb.GetItemInput
	getItem     map[string]types.AttributeValue
	getErr      error
	queryInput  *dynamodb.QueryInput
	queryItems  []map[string]types.AttributeValue
	queryErr    error
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = in
	if m.putErr != nil {
		return nil, m.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.getInput = in
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dynamodb.GetItemOutput{Item: m.getItem}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInput = in
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return &dynamodb.QueryOutput{Items: m.queryItems}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

func TestCreateIfAbsentSetsKeysAndType(t *testing.T) {
	mock := &mockDynamo{}
	repo := NewProfileRepository(store.NewTable(mock, "pbhms", logging.Default()), logging.Default())

	p := &Profile{PatientID: "p1", GivenName: "Ada", FamilyName: "Lovelace", Email: "ada@example.com"}
	created, err := repo.CreateIfAbsent(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created {
		t.Fatal("expected created=true")
	}
	if p.PK != "PATIENT#p1" || p.SK != "METADATA" {
		t.Errorf("keys = %s/%s", p.PK, p.SK)
	}
	if p.UserType != store.UserTypePatient {
		t.Errorf("userType = %s", p.UserType)
	}
	if p.CreatedAt == "" {
		t.Error("expected createdAt to be stamped")
	}
	if mock.putInput.ConditionExpression == nil || *mock.putInput.ConditionExpression != "attribute_not_exists(PK)" {
		t.Errorf("condition = %v", mock.putInput.ConditionExpression)
	}
}

func TestCreateIfAbsentDuplicateIsBenign(t *testing.T) {
	mock := &mockDynamo{putErr: &types.ConditionalCheckFailedException{}}
	repo := NewProfileRepository(store.NewTable(mock, "pbhms", logging.Default()), logging.Default())

	created, err := repo.CreateIfAbsent(context.Background(), &Profile{PatientID: "p1"})
	if err != nil {
		t.Fatalf("duplicate must not be an error, got %v", err)
	}
	if created {
		t.Error("expected created=false on duplicate")
	}
}

func TestGetReturnsNotFound(t *testing.T) {
	mock := &mockDynamo{} // nil item
	repo := NewProfileRepository(store.NewTable(mock, "pbhms", logging.Default()), logging.Default())

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestGetRejectsWrongUserType(t *testing.T) {
	item, _ := attributevalue.MarshalMap(Profile{PatientID: "pr1", UserType: store.UserTypeProvider})
	mock := &mockDynamo{getItem: item}
	repo := NewProfileRepository(store.NewTable(mock, "pbhms", logging.Default()), logging.Default())

	_, err := repo.Get(context.Background(), "pr1")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound for provider item", err)
	}
}

func TestRegistryRejectsDuplicateEmail(t *testing.T) {
	existing, _ := attributevalue.MarshalMap(Patient{PatientID: "p1", Email: "ada@example.com"})
	mock := &mockDynamo{queryItems: []map[string]types.AttributeValue{existing}}
	reg := NewRegistry(mock, "Patients", logging.Default())

	err := reg.Register(context.Background(), &Patient{PatientID: "p2", Email: "ada@example.com"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
	if mock.putInput != nil {
		t.Error("must not insert after duplicate email lookup")
	}
	if got := *mock.queryInput.IndexName; got != store.EmailIndex {
		t.Errorf("index = %s", got)
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	mock := &mockDynamo{}
	reg := NewRegistry(mock, "Patients", logging.Default())

	p := &Patient{PatientID: "p1", GivenName: "Ada", FamilyName: "Lovelace", Email: "ada@example.com"}
	if err := reg.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.CreatedAt == "" {
		t.Error("expected createdAt to be stamped")
	}

	item, _ := attributevalue.MarshalMap(p)
	mock.getItem = item
	got, err := reg.GetByID(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("email = %s", got.Email)
	}

	mock.getItem = nil
	if _, err := reg.GetByID(context.Background(), "missing"); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}
