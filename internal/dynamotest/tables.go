package dynamotest

// Marketplace table names used across package tests.
const (
	ItemsTable     = "items"
	LikesTable     = "likes"
	DownloadsTable = "downloads"
	PurchasesTable = "purchases"
	HandlesTable   = "handles"
	ProfilesTable  = "profiles"
)

// MarketplaceTables returns the schemas of the six service tables, matching
// the production layout: likes and downloads indexed by item, downloads
// additionally indexed by user and download time.
func MarketplaceTables() []Table {
	return []Table{
		{Name: ItemsTable, HashAttr: "id"},
		{
			Name: LikesTable, HashAttr: "user_id", RangeAttr: "item_id",
			Indexes: []Index{
				{Name: "item-index", HashAttr: "item_id"},
			},
		},
		{
			Name: DownloadsTable, HashAttr: "user_id", RangeAttr: "item_id",
			Indexes: []Index{
				{Name: "item-index", HashAttr: "item_id"},
				{Name: "user-time-index", HashAttr: "user_id", RangeAttr: "downloaded_at"},
			},
		},
		{Name: PurchasesTable, HashAttr: "user_id", RangeAttr: "item_id"},
		{Name: HandlesTable, HashAttr: "handle"},
		{Name: ProfilesTable, HashAttr: "user_id"},
	}
}
