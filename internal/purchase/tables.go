package purchase

// Compiled-in lookup tables. They are never modified after package
// initialization.

// ecommerceDomains are sender domains that mark an email as a purchase
// email on their own. Subdomains match as well.
var ecommerceDomains = []string{
	"amazon.com", "amazon.in", "flipkart.com", "myntra.com", "snapdeal.com",
	"paytmmall.com", "jiomart.com", "bigbasket.com", "grofers.com",
	"apple.com", "samsung.com", "dell.com", "hp.com", "lenovo.com",
	"bestbuy.com", "walmart.com", "target.com", "costco.com",
	"verizon.com", "att.com", "tmobile.com", "sprint.com",
}

// purchaseKeywords are lifecycle words found in order, receipt and
// shipping emails. Matching is a case-insensitive substring test.
var purchaseKeywords = []string{
	"order", "purchase", "receipt", "invoice", "confirmation",
	"shipped", "delivered", "payment", "transaction", "billing",
	"order confirmation", "purchase receipt", "order details",
	"shipping confirmation", "delivery confirmation",
}

// vendorDomains maps sender domains to canonical merchant names.
var vendorDomains = map[string]string{
	"amazon.com":   "Amazon",
	"amazon.in":    "Amazon India",
	"flipkart.com": "Flipkart",
	"myntra.com":   "Myntra",
	"snapdeal.com": "Snapdeal",
	"apple.com":    "Apple",
	"samsung.com":  "Samsung",
	"dell.com":     "Dell",
	"hp.com":       "HP",
	"lenovo.com":   "Lenovo",
	"bestbuy.com":  "Best Buy",
	"walmart.com":  "Walmart",
	"target.com":   "Target",
	"verizon.com":  "Verizon",
	"att.com":      "AT&T",
	"tmobile.com":  "T-Mobile",
}

// categoryKeywords is ordered: the first category with a keyword hit wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryElectronics, []string{"phone", "laptop", "computer", "tablet", "tv", "television", "camera", "headphone", "speaker", "printer", "monitor", "keyboard", "mouse"}},
	{CategoryAppliances, []string{"refrigerator", "washing machine", "microwave", "oven", "dishwasher", "air conditioner", "fan", "heater", "vacuum", "blender"}},
	{CategoryFurniture, []string{"chair", "table", "bed", "sofa", "desk", "cabinet", "shelf", "mattress", "dresser", "bookshelf"}},
	{CategoryClothing, []string{"shirt", "pants", "dress", "shoes", "jacket", "sweater", "jeans", "t-shirt", "hoodie", "coat"}},
	{CategoryBooks, []string{"book", "novel", "textbook", "magazine", "journal", "manual", "guide", "dictionary"}},
	{CategorySports, []string{"bicycle", "treadmill", "dumbbell", "yoga mat", "tennis racket", "football", "basketball", "gym equipment"}},
	{CategoryTools, []string{"drill", "hammer", "saw", "wrench", "screwdriver", "pliers", "toolbox", "power tool"}},
	{CategoryAutomotive, []string{"car", "bike", "motorcycle", "tire", "battery", "oil", "filter", "brake", "engine"}},
	{CategoryHomeGarden, []string{"plant", "garden", "lawn mower", "shovel", "rake", "fertilizer", "seed", "pot", "soil"}},
}
