package domain

import "strings"

// ShopSnapshot is the read-only shop configuration a turn runs against.
// It is loaded as a whole and never mutated by the engine; refresh is the
// hosting service's job (see shop.Cache).
type ShopSnapshot struct {
	ShopID         string             `yaml:"shop_id"`
	Name           string             `yaml:"name"`
	Catalog        Catalog            `yaml:"catalog"`
	PaymentMethods []PaymentMethod    `yaml:"payment_methods"`
	Knowledge      []KnowledgeSection `yaml:"knowledge"`
	KeywordRules   []KeywordRule      `yaml:"keyword_rules"`
	PersistentMenu []Button           `yaml:"persistent_menu"`
	OrderFlow      OrderFlowConfig    `yaml:"order_flow"`
	BookingFlow    BookingFlowConfig  `yaml:"booking_flow"`
	Labels         LabelOverrides     `yaml:"labels"`
	Settings       AssistantSettings  `yaml:"settings"`
}

type Catalog struct {
	Categories []Category `yaml:"categories"`
}

type Category struct {
	Name     string    `yaml:"name"`
	Products []Product `yaml:"products"`
}

type Product struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	ImageURL    string  `yaml:"image_url"`
}

// NonEmptyCategories returns the categories that contain at least one product.
func (c Catalog) NonEmptyCategories() []Category {
	var out []Category
	for _, cat := range c.Categories {
		if len(cat.Products) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// ItemNames returns every product name in the catalog, in category order.
func (c Catalog) ItemNames() []string {
	var names []string
	for _, cat := range c.Categories {
		for _, p := range cat.Products {
			names = append(names, p.Name)
		}
	}
	return names
}

// FindProduct looks a product up by ID across all categories.
func (c Catalog) FindProduct(id string) *Product {
	for _, cat := range c.Categories {
		for i := range cat.Products {
			if cat.Products[i].ID == id {
				return &cat.Products[i]
			}
		}
	}
	return nil
}

// FindCategory matches a category by name, case-insensitively.
func (c Catalog) FindCategory(name string) *Category {
	name = strings.TrimSpace(strings.ToLower(name))
	for i := range c.Categories {
		if strings.ToLower(c.Categories[i].Name) == name {
			return &c.Categories[i]
		}
	}
	return nil
}

type PaymentMethod struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Details string `yaml:"details"`
}

// KnowledgeSection is one trained knowledge-base entry. Sections flagged
// ShowAsQuickReply become quick-reply candidates in their own right.
type KnowledgeSection struct {
	Title            string `yaml:"title"`
	Content          string `yaml:"content"`
	ShowAsQuickReply bool   `yaml:"show_as_quick_reply"`
}

// RuleContext is the channel surface a keyword rule applies to.
type RuleContext string

const (
	RuleContextChat     RuleContext = "chat"
	RuleContextComments RuleContext = "comments"
)

// RuleMatchType selects exact or substring trigger matching.
type RuleMatchType string

const (
	RuleMatchExact    RuleMatchType = "exact"
	RuleMatchContains RuleMatchType = "contains"
)

// KeywordRule is a shop-defined canned response triggered by literal text
// matching. Triggers is a comma-separated list of phrases.
type KeywordRule struct {
	Name            string        `yaml:"name"`
	Match           RuleMatchType `yaml:"match"`
	Triggers        string        `yaml:"triggers"`
	ApplyToChat     bool          `yaml:"apply_to_chat"`
	ApplyToComments bool          `yaml:"apply_to_comments"`
	Enabled         bool          `yaml:"enabled"`
	Reply           RuleReply     `yaml:"reply"`
}

// AppliesTo reports whether the rule is active for the given context.
func (r *KeywordRule) AppliesTo(ctx RuleContext) bool {
	switch ctx {
	case RuleContextChat:
		return r.ApplyToChat
	case RuleContextComments:
		return r.ApplyToComments
	}
	return false
}

type RuleReply struct {
	Text       string      `yaml:"text"`
	Attachment *Attachment `yaml:"attachment"`
	Buttons    []Button    `yaml:"buttons"`
}

// OrderFlowConfig carries every prompt, label, and template the order
// management flow renders. Fields are explicit rather than a string-keyed
// map so a missing key cannot silently render a blank template.
type OrderFlowConfig struct {
	Enabled bool `yaml:"enabled"`

	FormName string `yaml:"form_name"`
	FormURL  string `yaml:"form_url"`

	OrderNowLabel    string `yaml:"order_now_label"`
	CheckStatusLabel string `yaml:"check_status_label"`
	UpdateOrderLabel string `yaml:"update_order_label"`
	CancelOrderLabel string `yaml:"cancel_order_label"`

	CreatePrompt       string `yaml:"create_prompt"`
	TriagePrompt       string `yaml:"triage_prompt"`
	AskOrderIDStatus   string `yaml:"ask_order_id_status"`
	AskOrderIDUpdate   string `yaml:"ask_order_id_update"`
	AskOrderIDCancel   string `yaml:"ask_order_id_cancel"`
	UpdateChoicePrompt string `yaml:"update_choice_prompt"`
	AskAddressPrompt   string `yaml:"ask_address_prompt"`
	AskPhonePrompt     string `yaml:"ask_phone_prompt"`

	StatusRecapTemplate     string `yaml:"status_recap_template"`
	UpdateConfirmedTemplate string `yaml:"update_confirmed_template"`
	CancelConfirmTemplate   string `yaml:"cancel_confirm_template"`
	CancelDoneTemplate      string `yaml:"cancel_done_template"`
	CancelAbortedMessage    string `yaml:"cancel_aborted_message"`
	CreatedTemplate         string `yaml:"created_template"`
	NotFoundMessage         string `yaml:"not_found_message"`
}

// BookingFlowConfig is the booking-side analogue of OrderFlowConfig.
type BookingFlowConfig struct {
	Enabled bool `yaml:"enabled"`

	FormName string `yaml:"form_name"`
	FormURL  string `yaml:"form_url"`

	BookNowLabel     string `yaml:"book_now_label"`
	CheckStatusLabel string `yaml:"check_status_label"`

	CreatePrompt       string `yaml:"create_prompt"`
	TriagePrompt       string `yaml:"triage_prompt"`
	AskBookingIDStatus string `yaml:"ask_booking_id_status"`

	StatusRecapTemplate string `yaml:"status_recap_template"`
	CreatedTemplate     string `yaml:"created_template"`
	NotFoundMessage     string `yaml:"not_found_message"`
}

// LabelOverrides rewrites the titles of well-known persistent-menu entries.
// Empty fields keep the configured default label.
type LabelOverrides struct {
	ManageOrder    string `yaml:"manage_order"`
	ManageBooking  string `yaml:"manage_booking"`
	CreateBooking  string `yaml:"create_booking"`
	PaymentMethods string `yaml:"payment_methods"`
}

// AssistantSettings tunes the assistant's behavior for one shop.
type AssistantSettings struct {
	Persona                string `yaml:"persona"`
	ResponseDelaySeconds   int    `yaml:"response_delay_seconds"`
	DisableCategoryBrowse  bool   `yaml:"disable_category_browse"`
	SuppressTalkToHuman    bool   `yaml:"suppress_talk_to_human"`
	HandoverMessage        string `yaml:"handover_message"`
	ApologyMessage         string `yaml:"apology_message"`
	NoPaymentMethodMessage string `yaml:"no_payment_method_message"`
	NoOrderFormMessage     string `yaml:"no_order_form_message"`
	ProductNotFoundMessage string `yaml:"product_not_found_message"`
	CategoriesPrompt       string `yaml:"categories_prompt"`
	AskAnotherReply        string `yaml:"ask_another_reply"`
	OrderIDPrefix          string `yaml:"order_id_prefix"`
	BookingIDPrefix        string `yaml:"booking_id_prefix"`
}
