// Package plugin describes what a plugin contributes to the platform and
// runs its lifecycle hooks.
//
// A plugin is any value implementing [Plugin]. The usual way to build one
// is to embed a [Definition]:
//
//	type Reviews struct {
//	    *plugin.Definition
//	    svc *ReviewService
//	}
//
//	func New() *Reviews {
//	    r := &Reviews{}
//	    r.Definition = plugin.New("reviews",
//	        plugin.WithVersion("1.2.0"),
//	        plugin.WithShopAPIExtension(plugin.APIExtension{Schema: shopSchema, Resolvers: []any{&ShopResolver{}}}),
//	        plugin.WithAdminAPIExtension(plugin.APIExtension{Schema: adminSchema}),
//	        plugin.WithJob(SendReviewDigest),
//	        plugin.WithEntity(plugin.Entity{Name: "ProductReview", Model: (*ProductReview)(nil)}),
//	        plugin.WithConfiguration(func(cfg *plaza.Config) error {
//	            cfg.CustomFields.Add(customfield.Product,
//	                customfield.Config{Name: "reviewRating", Type: customfield.TypeFloat, ReadOnly: true})
//	            return nil
//	        }),
//	    )
//	    return r
//	}
//
// Lifecycle hooks are opt-in: implement [BootstrapStarter],
// [BootstrapCloser], [WorkerStarter] or [WorkerCloser] on the plugin type.
// Start hooks run in registration order and the first error aborts
// startup. Close hooks run in reverse order; every hook runs and their
// errors are joined.
package plugin
