// Package operation executes types.Operation values (and batches of them)
// against a client.Client, resolving the singular->plural entity mapping and
// building the record URLs the OData API expects.
package operation

import (
	"context"
	"fmt"

	"github.com/norpie/dynamics-cli-sub003/internal/client"
	"github.com/norpie/dynamics-cli-sub003/internal/odata"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// PluralResolver resolves a singular logical entity name to its OData plural
// collection name — satisfied by (*config.Store).Plural, passed as a narrow
// interface so this package never imports internal/config.
type PluralResolver interface {
	Plural(ctx context.Context, singular string) (string, error)
}

// QueryOf recovers the odata.Query value stored in an OpQuery Operation's
// Query field, which internal/types declares as `any` so that package does
// not import odata.
func QueryOf(op types.Operation) (odata.Query, error) {
	q, ok := op.Query.(odata.Query)
	if !ok {
		return odata.Query{}, fmt.Errorf("operation: Query field is %T, not odata.Query", op.Query)
	}
	return q, nil
}

func recordURL(collectionURL, id string) string {
	return collectionURL + "(" + id + ")"
}

// Execute runs a single Operation to completion, resolving its entity's
// plural collection name first.
func Execute(ctx context.Context, c *client.Client, resolver PluralResolver, op types.Operation) (types.OperationResult, error) {
	plural, err := resolver.Plural(ctx, op.Entity)
	if err != nil {
		return types.OperationResult{}, fmt.Errorf("operation: resolve plural for %q: %w", op.Entity, err)
	}
	collectionURL := c.CollectionURL(plural)

	switch op.Kind {
	case types.OpCreate:
		return c.Create(ctx, op.Entity, collectionURL, op.Payload)

	case types.OpUpdate:
		return c.Update(ctx, op.Entity, recordURL(collectionURL, op.ID), op.Payload)

	case types.OpDelete:
		return c.Delete(ctx, op.Entity, recordURL(collectionURL, op.ID))

	case types.OpAssociate:
		targetPlural, err := resolver.Plural(ctx, op.TargetEntity)
		if err != nil {
			return types.OperationResult{}, fmt.Errorf("operation: resolve plural for target %q: %w", op.TargetEntity, err)
		}
		targetURL := recordURL(c.CollectionURL(targetPlural), op.TargetID)
		return c.Associate(ctx, op.Entity, recordURL(collectionURL, op.ID), op.Relation, targetURL)

	case types.OpQuery:
		q, err := QueryOf(op)
		if err != nil {
			return types.OperationResult{}, err
		}
		result, err := c.Query(ctx, plural, q)
		if err != nil {
			return types.OperationResult{Error: err}, err
		}
		return types.OperationResult{StatusCode: 200, Data: map[string]any{"value": result.Records, "@odata.nextLink": result.NextLink}}, nil

	default:
		return types.OperationResult{}, fmt.Errorf("operation: unknown kind %v", op.Kind)
	}
}
