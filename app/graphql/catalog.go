// Package graphql builds the read-only catalog schema served at
// /api/v1/graphql.
package graphql

import (
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/services"
	gql "github.com/pharmacare/pharmacare-api/pkg/graphql"
)

const maxLimit = 100

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(models.Product).ID.Hex(), nil
			},
		},
		"name":                 &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"brand":                &graphql.Field{Type: graphql.String},
		"category":             &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"price":                &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"description":          &graphql.Field{Type: graphql.String},
		"requiresPrescription": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"totalStock":           &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"images":               &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

// NewCatalogSchema exposes products(category, search, limit) and
// product(id).
func NewCatalogSchema(products *services.ProductService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					category, _ := p.Args["category"].(string)
					search, _ := p.Args["search"].(string)
					limit, _ := p.Args["limit"].(int)
					if limit > maxLimit {
						limit = maxLimit
					}
					list, _, err := products.List(p.Context, category, search, services.NewPage(1, limit))
					if err != nil {
						return nil, err
					}
					return list, nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					prod, err := products.Get(p.Context, id)
					if errors.Is(err, services.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return *prod, nil
				},
			},
		},
	})
	return gql.NewSchema(query)
}
