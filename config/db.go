// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	// Only use the Docker service name as fallback in development
	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://mongodb:27017/?replicaSet=rs0"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// DatabaseName returns the configured database name.
func DatabaseName() string {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "partnerhub"
	}
	return dbName
}

// GetCollection returns a MongoDB collection from the configured database.
func GetCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	return client.Database(DatabaseName()).Collection(collectionName)
}

// setupCollections ensures all necessary collections and indexes exist
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(DatabaseName())

	collections := []string{"partners", "admins", "deals", "stageEvents", "commissionRecords", "invoices", "commissionPolicies"}
	for _, collName := range collections {
		db.CreateCollection(ctx, collName)
	}

	// Partner lookups: email and referral code must be unique, parent links
	// are queried for every tree build.
	partnerColl := db.Collection("partners")
	partnerIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "referralCode", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parentPartnerId", Value: 1}}},
	}
	if _, err := partnerColl.Indexes().CreateMany(ctx, partnerIndexes); err != nil {
		log.Printf("Error creating partner indexes: %v", err)
	}

	adminColl := db.Collection("admins")
	if _, err := adminColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		log.Printf("Error creating admin email index: %v", err)
	}

	dealColl := db.Collection("deals")
	dealIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerPartnerId", Value: 1}}},
		{Keys: bson.D{{Key: "stage", Value: 1}}},
	}
	if _, err := dealColl.Indexes().CreateMany(ctx, dealIndexes); err != nil {
		log.Printf("Error creating deal indexes: %v", err)
	}

	// The transition log is append-only; (dealId, seq) is its identity.
	eventColl := db.Collection("stageEvents")
	if _, err := eventColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "dealId", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		log.Printf("Error creating stage event index: %v", err)
	}

	// At most one non-voided commission record per (dealId, level). The
	// partial filter keeps voided records out of the constraint so a declined
	// and reopened deal can be attributed again.
	commissionColl := db.Collection("commissionRecords")
	commissionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "dealId", Value: 1}, {Key: "level", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "voided", Value: false}}),
		},
		{Keys: bson.D{{Key: "beneficiaryPartnerId", Value: 1}}},
		{Keys: bson.D{{Key: "invoiceId", Value: 1}}},
	}
	if _, err := commissionColl.Indexes().CreateMany(ctx, commissionIndexes); err != nil {
		log.Printf("Error creating commission indexes: %v", err)
	}

	policyColl := db.Collection("commissionPolicies")
	if _, err := policyColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productType", Value: 1}, {Key: "level", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		log.Printf("Error creating policy index: %v", err)
	}

	seedCommissionPolicies(ctx, policyColl)

	log.Println("Database collections and indexes setup complete")
}

// seedCommissionPolicies inserts the default rate table when the collection
// is empty. Operators manage the live figures directly in the collection.
func seedCommissionPolicies(ctx context.Context, coll *mongo.Collection) {
	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Printf("Error counting commission policies: %v", err)
		return
	}
	if count > 0 {
		return
	}

	policies := models.DefaultCommissionPolicies()
	docs := make([]interface{}, len(policies))
	for i := range policies {
		docs[i] = policies[i]
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		log.Printf("Error seeding commission policies: %v", err)
		return
	}
	log.Printf("Seeded %d default commission policies", len(policies))
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if atIdx := strings.Index(uri, "@"); atIdx != -1 {
		if protoIdx := strings.Index(uri, "://"); protoIdx != -1 {
			return uri[:protoIdx+3] + "***" + uri[atIdx:]
		}
	}
	return uri
}
