// Package ads decides when ads are shown. It never talks to an ad network;
// clients ask it and render the ad themselves.
package ads

import "sync"

// DefaultFrequency shows an interstitial on every third generation.
const DefaultFrequency = 3

// PremiumChecker reports whether ads are switched off.
type PremiumChecker interface {
	IsPremium() bool
}

// Interstitial counts generations and says when a full-screen ad is due.
type Interstitial struct {
	every   int
	premium PremiumChecker

	mu    sync.Mutex
	count int
}

// NewInterstitial returns a policy that fires every n generations. n <= 0
// uses DefaultFrequency. premium may be nil.
func NewInterstitial(n int, premium PremiumChecker) *Interstitial {
	if n <= 0 {
		n = DefaultFrequency
	}
	return &Interstitial{every: n, premium: premium}
}

// Record counts one generation and reports whether an ad should be shown now.
// Premium users are still counted but never see one.
func (a *Interstitial) Record() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	if a.premium != nil && a.premium.IsPremium() {
		return false
	}
	return a.count%a.every == 0
}

// Next reports whether the next generation would show an ad.
func (a *Interstitial) Next() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.premium != nil && a.premium.IsPremium() {
		return false
	}
	return (a.count+1)%a.every == 0
}

func (a *Interstitial) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

func (a *Interstitial) ResetCount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count = 0
}

// Reward runs onReward only when an ad was ready to be shown, and reports
// whether it was.
func Reward(ready bool, onReward func()) bool {
	if !ready {
		return false
	}
	if onReward != nil {
		onReward()
	}
	return true
}
