//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/memestall/memestall/catalog"
	"github.com/memestall/memestall/handle"
	"github.com/memestall/memestall/ledger"
	"github.com/memestall/memestall/profile"
	"github.com/memestall/memestall/store"
)

// Test configuration
const (
	awsProfile = "memestall-dev"

	// Table names - unique per test run to avoid conflicts
	tablePrefix = "memestall-e2e-test"
)

var (
	testID         string
	itemsTable     string
	likesTable     string
	downloadsTable string
	purchasesTable string
	handlesTable   string
	profilesTable  string

	ddbClient   *dynamodb.Client
	testCatalog *catalog.Catalog
	testLedger  *ledger.Ledger
	testHandles *handle.Registry
	testProfile *profile.Store
)

// passThroughBlobs stands in for S3; every ref exists and deletes succeed.
type passThroughBlobs struct{}

func (passThroughBlobs) Exists(ctx context.Context, ref string) (bool, error) { return true, nil }
func (passThroughBlobs) Delete(ctx context.Context, ref string) error         { return nil }

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	itemsTable = fmt.Sprintf("%s-%s-items", tablePrefix, testID)
	likesTable = fmt.Sprintf("%s-%s-likes", tablePrefix, testID)
	downloadsTable = fmt.Sprintf("%s-%s-downloads", tablePrefix, testID)
	purchasesTable = fmt.Sprintf("%s-%s-purchases", tablePrefix, testID)
	handlesTable = fmt.Sprintf("%s-%s-handles", tablePrefix, testID)
	profilesTable = fmt.Sprintf("%s-%s-profiles", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithSharedConfigProfile(awsProfile),
	)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg)

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	items := store.NewTable[catalog.Item](ddbClient, itemsTable, "id")
	likes := store.NewCompositeTable[ledger.Like](ddbClient, likesTable, "user_id", "item_id")
	downloads := store.NewCompositeTable[ledger.Download](ddbClient, downloadsTable, "user_id", "item_id")
	purchases := store.NewCompositeTable[ledger.Purchase](ddbClient, purchasesTable, "user_id", "item_id")
	handles := store.NewTable[handle.Reservation](ddbClient, handlesTable, "handle")
	profiles := store.NewTable[profile.Profile](ddbClient, profilesTable, "user_id")

	testCatalog = catalog.New(items, passThroughBlobs{}, nil)
	testLedger = ledger.New(likes, downloads, purchases, testCatalog, nil)
	testHandles = handle.New(handles)
	testProfile = profile.New(profiles, testHandles, nil)

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	// Simple hash-key tables
	simple := map[string]string{
		itemsTable:    "id",
		handlesTable:  "handle",
		profilesTable: "user_id",
	}
	for tableName, hashAttr := range simple {
		_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(tableName),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(hashAttr), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(hashAttr), AttributeType: types.ScalarAttributeTypeS},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			return fmt.Errorf("create table %s: %w", tableName, err)
		}
	}

	// Likes: (user_id, item_id) plus item-index
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(likesTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("item_id"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("item_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(ledger.ItemIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("item_id"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create likes table: %w", err)
	}

	// Downloads: (user_id, item_id) plus item-index and user-time-index
	_, err = ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(downloadsTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("item_id"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("item_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("downloaded_at"), AttributeType: types.ScalarAttributeTypeS},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(ledger.ItemIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("item_id"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName: aws.String(ledger.UserTimeIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("downloaded_at"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create downloads table: %w", err)
	}

	// Purchases: (user_id, item_id)
	_, err = ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(purchasesTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("item_id"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("item_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create purchases table: %w", err)
	}

	allTables := []string{itemsTable, likesTable, downloadsTable, purchasesTable, handlesTable, profilesTable}
	for _, tableName := range allTables {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", tableName, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	tables := []string{itemsTable, likesTable, downloadsTable, purchasesTable, handlesTable, profilesTable}
	for _, tableName := range tables {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", tableName, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

func createItem(t *testing.T, title string) *catalog.Item {
	t.Helper()
	item, err := testCatalog.Create(context.Background(), catalog.Item{
		Title:      title,
		MediaRef:   "e2e/" + uuid.NewString() + ".png",
		UploadedBy: "e2e-uploader",
	})
	if err != nil {
		t.Fatalf("Create item failed: %v", err)
	}
	return item
}

// --- Like Tests ---

func TestLike_CounterMovesOnce(t *testing.T) {
	ctx := context.Background()
	item := createItem(t, "Like Counter Item")
	user := uuid.NewString()

	ok, err := testLedger.Like(ctx, user, item.ID)
	if err != nil {
		t.Fatalf("Like failed: %v", err)
	}
	if !ok {
		t.Fatal("expected first like to win")
	}

	// Blind retries must not move the counter again
	for i := 0; i < 3; i++ {
		ok, err := testLedger.Like(ctx, user, item.ID)
		if err != nil {
			t.Fatalf("Like retry failed: %v", err)
		}
		if ok {
			t.Error("expected retried like to lose the conditional write")
		}
	}

	got, err := testCatalog.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get item failed: %v", err)
	}
	if got.Likes != 1 {
		t.Errorf("expected 1 like, got %d", got.Likes)
	}
}

func TestUnlike_FloorsAtZero(t *testing.T) {
	ctx := context.Background()
	item := createItem(t, "Unlike Floor Item")
	user := uuid.NewString()

	ok, err := testLedger.Unlike(ctx, user, item.ID)
	if err != nil {
		t.Fatalf("Unlike failed: %v", err)
	}
	if ok {
		t.Error("expected unlike without prior like to lose")
	}

	got, err := testCatalog.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get item failed: %v", err)
	}
	if got.Likes != 0 {
		t.Errorf("expected like count to stay 0, got %d", got.Likes)
	}
}

// --- Download Tests ---

func TestDownload_CountsDistinctUsers(t *testing.T) {
	ctx := context.Background()
	item := createItem(t, "Download Count Item")

	users := []string{uuid.NewString(), uuid.NewString()}
	for _, user := range users {
		// Re-downloads refresh the same row
		for i := 0; i < 3; i++ {
			if err := testLedger.RecordDownload(ctx, user, item.ID); err != nil {
				t.Fatalf("RecordDownload failed: %v", err)
			}
		}
	}

	count, err := testLedger.CountDownloadsForItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("CountDownloadsForItem failed: %v", err)
	}
	if count != len(users) {
		t.Errorf("expected %d distinct downloaders, got %d", len(users), count)
	}

	downloads, err := testLedger.ListDownloadsForUser(ctx, users[0])
	if err != nil {
		t.Fatalf("ListDownloadsForUser failed: %v", err)
	}
	if len(downloads) != 1 {
		t.Errorf("expected 1 download entry, got %d", len(downloads))
	}
}

// --- Purchase Tests ---

func TestPurchase_Idempotent(t *testing.T) {
	ctx := context.Background()
	item := createItem(t, "Purchase Item")
	user := uuid.NewString()

	first, err := testLedger.RecordPurchase(ctx, user, item.ID)
	if err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}
	if !first {
		t.Fatal("expected first purchase to win")
	}

	second, err := testLedger.RecordPurchase(ctx, user, item.ID)
	if err != nil {
		t.Fatalf("RecordPurchase retry failed: %v", err)
	}
	if second {
		t.Error("expected repeat purchase to lose")
	}

	owned, err := testLedger.HasPurchased(ctx, user, item.ID)
	if err != nil {
		t.Fatalf("HasPurchased failed: %v", err)
	}
	if !owned {
		t.Error("expected HasPurchased true")
	}

	got, err := testCatalog.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get item failed: %v", err)
	}
	if got.Purchases != 1 {
		t.Errorf("expected 1 purchase, got %d", got.Purchases)
	}
}

// --- Handle Tests ---

func TestHandle_GloballyUnique(t *testing.T) {
	ctx := context.Background()
	h := "e2e-" + uuid.NewString()[:8]

	ok, err := testHandles.Reserve(ctx, "user-a", h)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !ok {
		t.Fatal("expected reservation to win")
	}

	ok, err = testHandles.Reserve(ctx, "user-b", h)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if ok {
		t.Error("expected second claimant to lose")
	}

	if err := testHandles.Release(ctx, h); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	ok, err = testHandles.Reserve(ctx, "user-b", h)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !ok {
		t.Error("expected released handle to be claimable")
	}
}

// --- Profile Tests ---

func TestProfile_HandleChangeSwapsReservations(t *testing.T) {
	ctx := context.Background()
	user := uuid.NewString()
	email := "e2e-" + user[:8] + "@example.com"

	prof, err := testProfile.GetOrCreate(ctx, user, email)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	oldHandle := prof.Handle

	newHandle := "renamed-" + user[:8]
	updated, err := testProfile.Apply(ctx, user, email, profile.Update{Handle: &newHandle})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if updated.Handle != newHandle {
		t.Errorf("expected handle %q, got %q", newHandle, updated.Handle)
	}

	// Old handle must be free again, new one held by this user
	ok, err := testHandles.Reserve(ctx, "someone-else", oldHandle)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !ok {
		t.Error("expected old handle to be released")
	}
	res, err := testHandles.Lookup(ctx, newHandle)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if res.UserID != user {
		t.Errorf("expected new handle held by %s, got %s", user, res.UserID)
	}
}
