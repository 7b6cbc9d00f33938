package content

import "context"

// Resolver loads item versions from the content store.
//
// GetItem returns an error wrapping ErrItemNotFound when the reference cannot
// be resolved. A reference with Version == LatestVersion resolves to the
// current latest version; the returned Item.Ref carries the concrete number.
type Resolver interface {
	GetItem(ctx context.Context, ref IndexableRef) (*Item, error)
}

// Tree is a Resolver that can also walk the item hierarchy.
type Tree interface {
	Resolver

	// Children returns the latest-version references of ref's direct children,
	// in ref's language.
	Children(ctx context.Context, ref IndexableRef) ([]IndexableRef, error)

	// Exists reports whether any version of the item is stored.
	Exists(ctx context.Context, id ItemID, database string) (bool, error)

	// Versions returns every stored version of the item in one language,
	// ascending.
	Versions(ctx context.Context, id ItemID, language, database string) ([]IndexableRef, error)

	// Languages returns the languages the item has at least one version in, sorted.
	Languages(ctx context.Context, id ItemID, database string) ([]string, error)
}

// DependencyResolver produces the references whose indexed representation
// depends on ref (items that aggregate or roll up ref's data).
type DependencyResolver interface {
	Dependents(ctx context.Context, ref IndexableRef) ([]IndexableRef, error)
}

// DependencyResolverFunc adapts a function to DependencyResolver.
type DependencyResolverFunc func(ctx context.Context, ref IndexableRef) ([]IndexableRef, error)

// Dependents implements DependencyResolver.
func (f DependencyResolverFunc) Dependents(ctx context.Context, ref IndexableRef) ([]IndexableRef, error) {
	return f(ctx, ref)
}
