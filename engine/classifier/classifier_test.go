package classifier

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
	keaconfig "isc.org/walledgarden/appcfg/kea"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/metrics"
	"isc.org/walledgarden/reservation"
)

//go:generate mockgen -package=classifier -destination=storemock_test.go isc.org/walledgarden/reservation Store

// Returns the registered (10) and unregistered (11) subnets sharing the
// prefix, as in the typical walled-garden deployment.
func newTestCandidates(t *testing.T) []*dhcpmodel.Subnet4 {
	registered, err := dhcpmodel.NewAddressPool("10.0.0.5-10.0.0.127")
	require.NoError(t, err)
	unregistered, err := dhcpmodel.NewAddressPool("10.0.0.128-10.0.0.254")
	require.NoError(t, err)
	return []*dhcpmodel.Subnet4{
		{ID: 10, Name: "registered", Prefix: "10.0.0.0/24", Pools: []dhcpmodel.AddressPool{*registered}},
		{ID: 11, Name: "unregistered", Prefix: "10.0.0.0/24", Pools: []dhcpmodel.AddressPool{*unregistered}},
	}
}

// Returns the three-tier candidates with the aged subnet 12.
func newTestThreeTierCandidates(t *testing.T) []*dhcpmodel.Subnet4 {
	aged, err := dhcpmodel.NewAddressPool("10.0.0.192-10.0.0.254")
	require.NoError(t, err)
	candidates := newTestCandidates(t)
	newly, err := dhcpmodel.NewAddressPool("10.0.0.128-10.0.0.191")
	require.NoError(t, err)
	candidates[1].Pools = []dhcpmodel.AddressPool{*newly}
	return append(candidates, &dhcpmodel.Subnet4{ID: 12, Name: "aged", Prefix: "10.0.0.0/24", Pools: []dhcpmodel.AddressPool{*aged}})
}

func newTestPolicy() Policy {
	return Policy{RegisteredSubnetID: 10, UnregisteredSubnetID: 11}
}

func newTestThreeTierPolicy() Policy {
	return Policy{RegisteredSubnetID: 10, UnregisteredSubnetID: 11, AgedUnregisteredSubnetID: 12}
}

func hw(t *testing.T, text string) []byte {
	hwAddress, err := dhcpmodel.ParseHWAddress(text)
	require.NoError(t, err)
	return hwAddress.Bytes()
}

// Test that the device without the hardware address is not classified.
func TestClassifyNoIdentifier(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	classifier := NewClassifier(store, newTestPolicy(), nil)

	// Act
	decision := classifier.Classify(nil, newTestCandidates(t))

	// Assert
	require.False(t, decision.HasOverride())
	require.Equal(t, VerdictAllow, decision.Verdict)
	require.Equal(t, TierUnknown, decision.Tier)
	require.Equal(t, "no hardware address", decision.Reason)
}

// Test that the request without candidate subnets is not classified.
func TestClassifyNoCandidates(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	classifier := NewClassifier(store, newTestPolicy(), nil)

	// Act
	decision := classifier.Classify(hw(t, "aa:bb:cc:dd:ee:ff"), nil)

	// Assert
	require.Nil(t, decision.Subnet)
	require.Equal(t, VerdictAllow, decision.Verdict)
	require.Equal(t, TierUnknown, decision.Tier)
}

// Test that the global reservation selects the registered subnet without
// looking into the subnet scopes.
func TestClassifyGlobalReservation(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	identifier := hw(t, "aa:bb:cc:dd:ee:ff")
	global := &reservation.Reservation{Scope: reservation.ScopeGlobal, Identifier: identifier}
	store.EXPECT().
		Lookup(reservation.ScopeGlobal, reservation.IdentifierTypeHWAddress, identifier).
		Return(global, true).
		Times(1)
	candidates := newTestCandidates(t)
	classifier := NewClassifier(store, newTestPolicy(), nil)

	// Act
	decision := classifier.Classify(identifier, candidates)

	// Assert
	require.Same(t, candidates[0], decision.Subnet)
	require.Equal(t, TierRegistered, decision.Tier)
	require.Same(t, global, decision.Reservation)
	require.Equal(t, "reservation found in the global scope", decision.Reason)
}

// Test that the subnet scopes are searched in the candidate order after
// the global scope and the first match wins.
func TestClassifySubnetReservation(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	identifier := hw(t, "aa:bb:cc:dd:ee:ff")
	subnetReservation := &reservation.Reservation{Scope: 11, Identifier: identifier}
	gomock.InOrder(
		store.EXPECT().Lookup(reservation.ScopeGlobal, reservation.IdentifierTypeHWAddress, identifier).Return(nil, false),
		store.EXPECT().Lookup(dhcpmodel.SubnetID(10), reservation.IdentifierTypeHWAddress, identifier).Return(nil, false),
		store.EXPECT().Lookup(dhcpmodel.SubnetID(11), reservation.IdentifierTypeHWAddress, identifier).Return(subnetReservation, true),
	)
	candidates := newTestCandidates(t)
	classifier := NewClassifier(store, newTestPolicy(), nil)

	// Act
	decision := classifier.Classify(identifier, candidates)

	// Assert
	require.Same(t, candidates[0], decision.Subnet)
	require.Equal(t, TierRegistered, decision.Tier)
	require.Equal(t, "reservation found in subnet 11", decision.Reason)
}

// Test that the device without reservation is placed in the unregistered
// subnet when the three-tier policy is disabled.
func TestClassifyUnregistered(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	store.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, false).Times(3)
	candidates := newTestCandidates(t)
	m := metrics.NewMetrics()
	classifier := NewClassifier(store, newTestPolicy(), m)

	// Act
	decision := classifier.Classify(hw(t, "aa:bb:cc:dd:ee:ff"), candidates)

	// Assert
	require.Same(t, candidates[1], decision.Subnet)
	require.Equal(t, TierUnregistered, decision.Tier)
	require.Equal(t, VerdictAllow, decision.Verdict)
	require.Nil(t, decision.Reservation)
}

// Test the three-tier split of the unregistered devices by age.
func TestClassifyThreeTier(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	testCases := []struct {
		name           string
		firstSeen      time.Time
		known          bool
		expectedTier   Tier
		expectedSubnet dhcpmodel.SubnetID
	}{
		{"newly", now.Add(-10 * time.Minute), true, TierNewlyUnregistered, 11},
		{"just below threshold", now.Add(-30*time.Minute + time.Second), true, TierNewlyUnregistered, 11},
		{"at threshold", now.Add(-30 * time.Minute), true, TierAgedUnregistered, 12},
		{"aged", now.Add(-2 * time.Hour), true, TierAgedUnregistered, 12},
		{"unknown", time.Time{}, false, TierNewlyUnregistered, 11},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			// Arrange
			ctrl := gomock.NewController(t)
			store := NewMockStore(ctrl)
			identifier := hw(t, "aa:bb:cc:dd:ee:ff")
			store.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, false).AnyTimes()
			store.EXPECT().FirstSeen(identifier).Return(testCase.firstSeen, testCase.known)
			classifier := NewClassifierWithClock(store, newTestThreeTierPolicy(), nil, clock)

			// Act
			decision := classifier.Classify(identifier, newTestThreeTierCandidates(t))

			// Assert
			require.Equal(t, testCase.expectedTier, decision.Tier)
			require.NotNil(t, decision.Subnet)
			require.Equal(t, testCase.expectedSubnet, decision.Subnet.ID)
		})
	}
}

// Test that the missing policy subnet results in no override instead of
// a denial.
func TestClassifyMisconfiguration(t *testing.T) {
	// Arrange
	store := reservation.NewMemoryStore()
	candidates := newTestCandidates(t)[:1]
	classifier := NewClassifier(store, newTestPolicy(), nil)

	// Act
	decision := classifier.Classify(hw(t, "aa:bb:cc:dd:ee:ff"), candidates)

	// Assert
	require.False(t, decision.HasOverride())
	require.Equal(t, VerdictAllow, decision.Verdict)
	require.Equal(t, TierUnregistered, decision.Tier)
	require.Contains(t, decision.Reason, "subnet 11 is not among the candidate subnets")
	require.Equal(t, VerdictAllow, decision.EvaluateAddress(net.ParseIP("10.0.0.200")))
}

// Test that the classification is idempotent for the same store contents.
func TestClassifyIdempotent(t *testing.T) {
	// Arrange
	store := reservation.NewMemoryStore()
	candidates := newTestCandidates(t)
	classifier := NewClassifier(store, newTestPolicy(), nil)
	identifier := hw(t, "aa:bb:cc:dd:ee:ff")

	// Act
	first := classifier.Classify(identifier, candidates)
	second := classifier.Classify(identifier, candidates)

	// Assert
	require.Equal(t, first, second)
	require.NotSame(t, first, second)
}

// Test that the reservation added between two classifications is
// reflected in the second decision.
func TestClassifyFreshness(t *testing.T) {
	// Arrange
	store := reservation.NewMemoryStore()
	candidates := newTestCandidates(t)
	classifier := NewClassifier(store, newTestPolicy(), nil)
	identifier := hw(t, "aa:bb:cc:dd:ee:ff")

	first := classifier.Classify(identifier, candidates)

	builder := reservation.NewSnapshotBuilder()
	require.NoError(t, builder.AddReservation(&reservation.Reservation{
		Scope:          reservation.ScopeGlobal,
		IdentifierType: reservation.IdentifierTypeHWAddress,
		Identifier:     identifier,
	}))
	store.Swap(builder.Build(time.Now()))

	// Act
	second := classifier.Classify(identifier, candidates)

	// Assert
	require.Equal(t, TierUnregistered, first.Tier)
	require.EqualValues(t, 11, first.Subnet.ID)
	require.Equal(t, TierRegistered, second.Tier)
	require.EqualValues(t, 10, second.Subnet.ID)
}

// Test that the address outside of the entitled pools is denied.
func TestDecisionEvaluateAddress(t *testing.T) {
	candidates := newTestCandidates(t)
	decision := &Decision{Subnet: candidates[0], Tier: TierRegistered}

	require.Equal(t, VerdictAllow, decision.EvaluateAddress(net.ParseIP("10.0.0.100")))
	require.Equal(t, VerdictDeny, decision.EvaluateAddress(net.ParseIP("10.0.0.200")))
	require.Equal(t, VerdictAllow, decision.EvaluateAddress(nil))
	require.Equal(t, VerdictAllow, decision.EvaluateAddress(net.IPv4zero))

	var noDecision *Decision
	require.False(t, noDecision.HasOverride())
	require.Equal(t, VerdictAllow, noDecision.EvaluateAddress(net.ParseIP("10.0.0.200")))
	require.Equal(t, VerdictAllow, (&Decision{}).EvaluateAddress(net.ParseIP("10.0.0.200")))
}

// Test that the policy is created from the configuration.
func TestNewPolicyFromConfig(t *testing.T) {
	policy := NewPolicyFromConfig(&keaconfig.WalledGarden{})
	require.EqualValues(t, 10, policy.RegisteredSubnetID)
	require.EqualValues(t, 11, policy.UnregisteredSubnetID)
	require.False(t, policy.IsThreeTier())
	require.Equal(t, DefaultAgeThreshold, policy.AgeThreshold)

	policy = NewPolicyFromConfig(&keaconfig.WalledGarden{AgedUnregisteredSubnetID: 12, AgedThreshold: 60})
	require.True(t, policy.IsThreeTier())
	require.EqualValues(t, 12, policy.AgedUnregisteredSubnetID)
	require.Equal(t, time.Minute, policy.AgeThreshold)
	require.Equal(t, DefaultAgeThreshold, Policy{}.getAgeThreshold())
}

// Test the tier and verdict names.
func TestTierAndVerdictString(t *testing.T) {
	require.Equal(t, "unknown", TierUnknown.String())
	require.Equal(t, "registered", TierRegistered.String())
	require.Equal(t, "unregistered", TierUnregistered.String())
	require.Equal(t, "newly-unregistered", TierNewlyUnregistered.String())
	require.Equal(t, "aged-unregistered", TierAgedUnregistered.String())
	require.True(t, TierAgedUnregistered.IsUnregistered())
	require.False(t, TierRegistered.IsUnregistered())
	require.False(t, TierUnknown.IsUnregistered())
	require.Equal(t, "allow", VerdictAllow.String())
	require.Equal(t, "deny", VerdictDeny.String())
}
