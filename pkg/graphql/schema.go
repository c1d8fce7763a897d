// Package graphql exposes the layout service over GraphQL.
package graphql

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/service"
	"github.com/dd0wney/cluso-frlayout/pkg/validation"
)

// Layouter is the part of the service the schema resolves against.
type Layouter interface {
	Defaults() layout.Config
	LayoutWith(ctx context.Context, req *service.Request, cfg *layout.Config) (*service.Result, error)
	ListGraphs(ctx context.Context) ([]string, error)
}

var positionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "NodePosition",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"x": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Float),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(layout.PositionUpdate).Position.X, nil
			},
		},
		"y": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Float),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(layout.PositionUpdate).Position.Y, nil
			},
		},
	},
})

var resultType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LayoutResult",
	Fields: graphql.Fields{
		"runId":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"iterations": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"elapsedMs":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"positions":  &graphql.Field{Type: graphql.NewList(positionType)},
	},
})

var configType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LayoutConfig",
	Fields: graphql.Fields{
		"autoArea":              &graphql.Field{Type: graphql.Boolean},
		"area":                  &graphql.Field{Type: graphql.Float},
		"gravity":               &graphql.Field{Type: graphql.Float},
		"speed":                 &graphql.Field{Type: graphql.Float},
		"iterations":            &graphql.Field{Type: graphql.Int},
		"refreshInterval":       &graphql.Field{Type: graphql.Int},
		"refreshIterationBatch": &graphql.Field{Type: graphql.Int},
		"fit":                   &graphql.Field{Type: graphql.Boolean},
		"padding":               &graphql.Field{Type: graphql.Float},
		"animate":               &graphql.Field{Type: graphql.Boolean},
		"animationDuration":     &graphql.Field{Type: graphql.Int},
		"easing":                &graphql.Field{Type: graphql.String},
		"duration":              &graphql.Field{Type: graphql.Int},
	},
})

var nodeInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "NodeInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"x":     &graphql.InputObjectFieldConfig{Type: graphql.Float, DefaultValue: 0.0},
		"y":     &graphql.InputObjectFieldConfig{Type: graphql.Float, DefaultValue: 0.0},
		"fixed": &graphql.InputObjectFieldConfig{Type: graphql.Boolean, DefaultValue: false},
	},
})

var edgeInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "EdgeInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":     &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"source": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"target": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
	},
})

var viewportInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ViewportInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"width":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		"height": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
	},
})

var optionsInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "LayoutOptions",
	Fields: graphql.InputObjectConfigFieldMap{
		"autoArea":          &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"area":              &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"gravity":           &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"speed":             &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"iterations":        &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"fit":               &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"padding":           &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"animate":           &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"animationDuration": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"easing":            &graphql.InputObjectFieldConfig{Type: graphql.String},
		"centerOnViewport":  &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
	},
})

// NewSchema builds the schema: health, easings, defaults, graphs and layout.
func NewSchema(svc Layouter) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"easings": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(graphql.ResolveParams) (any, error) {
					return layout.EasingNames(), nil
				},
			},
			"defaults": &graphql.Field{
				Type: configType,
				Resolve: func(graphql.ResolveParams) (any, error) {
					return configMap(svc.Defaults()), nil
				},
			},
			"graphs": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return svc.ListGraphs(p.Context)
				},
			},
			"layout": &graphql.Field{
				Type: resultType,
				Args: graphql.FieldConfigArgument{
					"nodes":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(nodeInput))},
					"edges":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(edgeInput))},
					"graphId":  &graphql.ArgumentConfig{Type: graphql.String},
					"viewport": &graphql.ArgumentConfig{Type: viewportInput},
					"options":  &graphql.ArgumentConfig{Type: optionsInput},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return resolveLayout(p, svc)
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func resolveLayout(p graphql.ResolveParams, svc Layouter) (any, error) {
	req := &service.Request{}
	if id, ok := p.Args["graphId"].(string); ok {
		req.GraphID = id
	}
	if nodes, ok := p.Args["nodes"].([]any); ok {
		req.Graph = &validation.GraphRequest{}
		for _, raw := range nodes {
			n := raw.(map[string]any)
			req.Graph.Nodes = append(req.Graph.Nodes, validation.NodeRequest{
				ID:    n["id"].(string),
				X:     floatArg(n["x"]),
				Y:     floatArg(n["y"]),
				Fixed: n["fixed"] == true,
			})
		}
		if edges, ok := p.Args["edges"].([]any); ok {
			for _, raw := range edges {
				e := raw.(map[string]any)
				id, _ := e["id"].(string)
				req.Graph.Edges = append(req.Graph.Edges, validation.EdgeRequest{
					ID:     id,
					Source: e["source"].(string),
					Target: e["target"].(string),
				})
			}
		}
	}
	if vp, ok := p.Args["viewport"].(map[string]any); ok {
		req.Viewport = &host.ViewportSize{Width: floatArg(vp["width"]), Height: floatArg(vp["height"])}
	}

	cfg := svc.Defaults()
	if opts, ok := p.Args["options"].(map[string]any); ok {
		applyOptions(&cfg, opts)
	}
	return svc.LayoutWith(p.Context, req, &cfg)
}

// applyOptions overwrites the fields present in opts.
func applyOptions(cfg *layout.Config, opts map[string]any) {
	for key, v := range opts {
		if v == nil {
			continue
		}
		switch key {
		case "autoArea":
			cfg.AutoArea = v.(bool)
		case "area":
			cfg.Area = floatArg(v)
		case "gravity":
			cfg.Gravity = floatArg(v)
		case "speed":
			cfg.Speed = floatArg(v)
		case "iterations":
			cfg.Iterations = v.(int)
		case "fit":
			cfg.Fit = v.(bool)
		case "padding":
			cfg.Padding = floatArg(v)
		case "animate":
			cfg.Animate = v.(bool)
		case "animationDuration":
			cfg.AnimationDurationMS = v.(int)
		case "easing":
			cfg.Easing = v.(string)
		case "centerOnViewport":
			cfg.CenterOnViewport = v.(bool)
		}
	}
}

func floatArg(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return 0
	}
}

func configMap(c layout.Config) map[string]any {
	return map[string]any{
		"autoArea":              c.AutoArea,
		"area":                  c.Area,
		"gravity":               c.Gravity,
		"speed":                 c.Speed,
		"iterations":            c.Iterations,
		"refreshInterval":       c.RefreshIntervalMS,
		"refreshIterationBatch": c.RefreshIterationBatch,
		"fit":                   c.Fit,
		"padding":               c.Padding,
		"animate":               c.Animate,
		"animationDuration":     c.AnimationDurationMS,
		"easing":                c.Easing,
		"duration":              c.DurationMS,
	}
}
