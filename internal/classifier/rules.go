package classifier

import "regexp"

// defaultProductPatterns match product detail pages across most
// storefronts. Listing paths (/collections/, /category/) are deliberately
// absent: a collection page links to products but is not one, and it is
// already favored by the priority category.
var defaultProductPatterns = compilePatterns([]string{
	`/product/`,
	`/item/`,
	`/p/`,
	`/products/`,
	`/pd/`,
	`-pd-`,
	`/buy/`,
	`/shop/`,
	`productdetail`,
	`/prod-`,
	`/item-`,
	`/detail/`,
	`/sku/`,
	`/view/`,
	`/Prod-`,
	`/productpage`,
	`[a-zA-Z0-9-]+-p-\d+`,
})

// defaultDomainPatterns hold per-site product URL shapes, keyed by a
// substring of the domain so that www and bare hosts share rules.
var defaultDomainPatterns = map[string][]*regexp.Regexp{
	"tatacliq.com": compilePatterns([]string{
		`/p-mp`,
		`/product-details/`,
		`/p-`,
	}),
	"nykaafashion.com": compilePatterns([]string{
		`/product/`,
		`/p/`,
		`/[a-zA-Z0-9-]+/p/\d+`,
	}),
	"virgio.com": compilePatterns([]string{
		`/shop/`,
		`/[a-zA-Z0-9-]+-p-\d+`,
	}),
	"westside.com": compilePatterns([]string{
		`/products/`,
		`/[a-zA-Z0-9-]+-pid-\d+`,
	}),
}

// defaultPaginationPatterns recognize paginated listing continuations in
// either query or path form.
var defaultPaginationPatterns = compilePatterns([]string{
	`page=\d+`,
	`/page/\d+`,
	`p=\d+`,
	`offset=\d+`,
	`pageNumber=\d+`,
	`pg=\d+`,
})

// defaultPriorityMarkers flag listing pages worth crawling before
// ordinary links. Plain substrings, not regexps: they appear verbatim in
// paths and substring checks keep the hot path cheap.
var defaultPriorityMarkers = []string{
	"/category/",
	"/collection/",
	"/shop/",
	"/products/",
}

// defaultSkipMarkers flag account and checkout flows that never lead to
// product pages. Links containing them are not expanded at all.
var defaultSkipMarkers = []string{
	"login",
	"signup",
	"register",
	"cart",
	"checkout",
	"account",
	"wishlist",
}

// numericRun matches any digit sequence. Used by the trailing-segment
// heuristic.
var numericRun = regexp.MustCompile(`\d+`)

// compilePatterns compiles a pattern list, panicking on invalid input.
// Only called with the vetted built-in tables; user-supplied patterns go
// through the error-returning option constructors instead.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}
