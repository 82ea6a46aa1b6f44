package migrations

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pharmacare/pharmacare-api/pkg/migration"
)

func init() {
	migration.Register("20240101000000_create_users_indexes", &indexes{
		collection: "users",
		models: []mongo.IndexModel{
			index("users_email_unique", bson.D{{Key: "email", Value: 1}}, true),
		},
	})

	migration.Register("20240101000001_create_products_indexes", &indexes{
		collection: "products",
		models: []mongo.IndexModel{
			index("products_category", bson.D{{Key: "category", Value: 1}}, false),
			index("products_name", bson.D{{Key: "name", Value: 1}}, false),
		},
	})

	migration.Register("20240101000002_create_batches_indexes", &indexes{
		collection: "batches",
		models: []mongo.IndexModel{
			index("batches_number_unique", bson.D{{Key: "batchNumber", Value: 1}}, true),
			index("batches_fifo", bson.D{
				{Key: "productId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "manufacturingDate", Value: 1},
			}, false),
		},
	})

	migration.Register("20240101000003_create_orders_indexes", &indexes{
		collection: "orders",
		models: []mongo.IndexModel{
			index("orders_user", bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, false),
			index("orders_reservations", bson.D{
				{Key: "items.productId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "stockConsumed", Value: 1},
			}, false),
		},
	})

	migration.Register("20240101000004_create_suppliers_indexes", &indexes{
		collection: "suppliers",
		models: []mongo.IndexModel{
			index("suppliers_email_unique", bson.D{{Key: "email", Value: 1}}, true),
		},
	})

	migration.Register("20240101000005_create_moderation_indexes", &indexes{
		collection: "feedback",
		models: []mongo.IndexModel{
			index("feedback_product_status", bson.D{{Key: "productId", Value: 1}, {Key: "status", Value: 1}}, false),
			index("feedback_user", bson.D{{Key: "userId", Value: 1}}, false),
		},
	})

	migration.Register("20240101000006_create_support_indexes", &indexes{
		collection: "support",
		models: []mongo.IndexModel{
			index("support_user", bson.D{{Key: "userId", Value: 1}}, false),
		},
	})

	migration.Register("20240101000007_create_prescriptions_indexes", &indexes{
		collection: "prescriptions",
		models: []mongo.IndexModel{
			index("prescriptions_user", bson.D{{Key: "userId", Value: 1}}, false),
			index("prescriptions_status", bson.D{{Key: "status", Value: 1}}, false),
		},
	})

	migration.Register("20240101000008_create_outbox_indexes", &indexes{
		collection: "outbox",
		models: []mongo.IndexModel{
			index("outbox_status_updated", bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}}, false),
		},
	})

	migration.Register("20240101000009_create_failed_jobs_indexes", &indexes{
		collection: "failed_jobs",
		models: []mongo.IndexModel{
			index("failed_jobs_failed_at", bson.D{{Key: "failedAt", Value: -1}}, false),
		},
	})
}
