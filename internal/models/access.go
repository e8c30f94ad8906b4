package models

// AllAccounts and AllAccountsWithOwnerName are the only legal values of the
// special permission keys (allPsd2, availableAccounts,
// availableAccountsWithBalance).
const (
	AllAccounts              = "allAccounts"
	AllAccountsWithOwnerName = "allAccountsWithOwnerName"
)

// AccountAccess is the "access" object of an account consent request.
// Pointer slices distinguish an absent key from a present-but-empty array,
// which the permission resolution rules care about.
type AccountAccess struct {
	Accounts                     *[]AccountReference    `json:"accounts,omitempty"`
	Balances                     *[]AccountReference    `json:"balances,omitempty"`
	Transactions                 *[]AccountReference    `json:"transactions,omitempty"`
	AvailableAccounts            string                 `json:"availableAccounts,omitempty"`
	AvailableAccountsWithBalance string                 `json:"availableAccountsWithBalance,omitempty"`
	AllPsd2                      string                 `json:"allPsd2,omitempty"`
	AdditionalInformation        *AdditionalInformation `json:"additionalInformation,omitempty"`
}

// AdditionalInformation is the owner-name disclosure sub-object of the access
// object.
type AdditionalInformation struct {
	OwnerName []AccountReference `json:"ownerName,omitempty"`
}

// HasMethodArrays reports whether any of the accounts/balances/transactions
// keys is present, regardless of array content.
func (a *AccountAccess) HasMethodArrays() bool {
	return a.Accounts != nil || a.Balances != nil || a.Transactions != nil
}

// methodArrays returns the present method-keyed arrays.
func (a *AccountAccess) methodArrays() []*[]AccountReference {
	var arrays []*[]AccountReference
	for _, arr := range []*[]AccountReference{a.Accounts, a.Balances, a.Transactions} {
		if arr != nil {
			arrays = append(arrays, arr)
		}
	}
	return arrays
}

// ProvidedAccessTypes counts how many method-keyed arrays are present.
func (a *AccountAccess) ProvidedAccessTypes() int {
	return len(a.methodArrays())
}

// EmptyAccessMethodArrays counts how many of the present method-keyed arrays
// are empty.
func (a *AccountAccess) EmptyAccessMethodArrays() int {
	empty := 0
	for _, arr := range a.methodArrays() {
		if len(*arr) == 0 {
			empty++
		}
	}
	return empty
}

// SpecialPermissionCount counts how many of the special permission keys are
// set.
func (a *AccountAccess) SpecialPermissionCount() int {
	count := 0
	if a.AvailableAccounts != "" {
		count++
	}
	if a.AvailableAccountsWithBalance != "" {
		count++
	}
	if a.AllPsd2 != "" {
		count++
	}
	return count
}

// DedicatedReferences returns every account reference in the method-keyed
// arrays. Only meaningful for the DEDICATED_ACCOUNTS variant.
func (a *AccountAccess) DedicatedReferences() []AccountReference {
	var refs []AccountReference
	for _, arr := range a.methodArrays() {
		refs = append(refs, *arr...)
	}
	return refs
}

// AccessSpecification is the resolved permission view of an access object:
// the derived variant plus the dedicated references grouped per access method.
type AccessSpecification struct {
	Permission   PermissionVariant
	Accounts     []AccountReference
	Balances     []AccountReference
	Transactions []AccountReference
}

// NewAccessSpecification builds the resolved specification for a permission
// variant over a given access object.
func NewAccessSpecification(permission PermissionVariant, access *AccountAccess) *AccessSpecification {
	spec := &AccessSpecification{Permission: permission}
	if permission != PermissionDedicatedAccounts || access == nil {
		return spec
	}
	if access.Accounts != nil {
		spec.Accounts = *access.Accounts
	}
	if access.Balances != nil {
		spec.Balances = *access.Balances
	}
	if access.Transactions != nil {
		spec.Transactions = *access.Transactions
	}
	return spec
}

// PersistedReferences returns the deduplicated persisted forms of every
// dedicated reference, for the engine's account mapping store. Empty for
// non-dedicated variants.
func (s *AccessSpecification) PersistedReferences() []string {
	var persisted []string
	seen := map[string]bool{}
	for _, refs := range [][]AccountReference{s.Accounts, s.Balances, s.Transactions} {
		for i := range refs {
			value := refs[i].Persist()
			if value == "" || seen[value] {
				continue
			}
			seen[value] = true
			persisted = append(persisted, value)
		}
	}
	return persisted
}
