package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

// ErrEmailExists indicates the registry already holds a patient with the
// given email address.
var ErrEmailExists = errors.New("patients: email already registered")

type registryDynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Registry is the legacy public patient registry. It predates the
// single-table layout: its table is keyed by patientId alone, with email
// uniqueness enforced by a GSI lookup before the insert. Kept for clients
// that registered before the token-derived profile flow existed.
type Registry struct {
	client    registryDynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewRegistry builds a registry backed by its own DynamoDB table.
func NewRegistry(client registryDynamoAPI, tableName string, logger *logging.Logger) *Registry {
	if client == nil {
		panic("patients: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("patients: registry table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{client: client, tableName: tableName, logger: logger}
}

// Register inserts a patient after checking the email GSI for duplicates.
// The lookup-then-insert pair is not atomic; two concurrent registrations
// with the same email can both pass the check. Accepted for the legacy
// surface, which the email GSI serves at human registration rates.
func (r *Registry) Register(ctx context.Context, p *Patient) error {
	if p == nil || p.PatientID == "" || p.Email == "" {
		return errors.New("patients: registration requires an id and email")
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(store.EmailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: p.Email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("patients: email lookup: %w", err)
	}
	if len(out.Items) > 0 {
		return ErrEmailExists
	}

	if p.CreatedAt == "" {
		p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("patients: marshal patient: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("patients: register: %w", err)
	}
	return nil
}

// GetByID point-reads a registered patient.
func (r *Registry) GetByID(ctx context.Context, patientID string) (*Patient, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"patientId": &types.AttributeValueMemberS{Value: patientID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("patients: get patient: %w", err)
	}
	if out.Item == nil {
		return nil, ErrPatientNotFound
	}
	var p Patient
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("patients: decode patient: %w", err)
	}
	return &p, nil
}
