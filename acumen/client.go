// Package acumen extracts work-shift records from the Acumen DCI portal. The
// portal has no API for employer punch data, so extraction drives a headless
// browser through the login form and scrapes the punches table. Everything
// session-related stays behind the Extractor interface; the reconciliation
// core never sees browser state.
package acumen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"acumensync/faults"
	"acumensync/internal/timeutil"
	"acumensync/worklog"
)

// Credentials is one employee's portal login.
type Credentials struct {
	Email    string
	Password string
}

// Extractor is the capability contract for pulling raw entries.
type Extractor interface {
	Fetch(ctx context.Context, employeeID string, creds Credentials, win timeutil.Window) ([]worklog.Entry, error)
}

// BrowserExtractor scrapes the portal with chromedp.
type BrowserExtractor struct {
	BaseURL  string
	Location *time.Location
	// BrowserBin overrides the browser binary; empty means chromedp's default.
	BrowserBin   string
	LoginTimeout time.Duration
}

const defaultLoginTimeout = 30 * time.Second

// Fetch logs in, loads the punches table, and returns the entries whose
// service date falls inside the window. A failed login is fatal for this
// employee only; slow page loads are transient.
func (x *BrowserExtractor) Fetch(ctx context.Context, employeeID string, creds Credentials, win timeutil.Window) ([]worklog.Entry, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, faults.Fatal("acumen login", errors.New("missing credentials"))
	}

	allocOptions := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if x.BrowserBin != "" {
		allocOptions = append(allocOptions, chromedp.ExecPath(x.BrowserBin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOptions...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := x.login(browserCtx, creds); err != nil {
		return nil, err
	}
	defer x.logout(browserCtx)

	table, err := x.scrapePunches(browserCtx)
	if err != nil {
		return nil, err
	}

	entries, err := ParseTable(table, employeeID, x.location())
	if err != nil {
		return nil, fmt.Errorf("parse punches table: %w", err)
	}

	filtered := make([]worklog.Entry, 0, len(entries))
	for _, entry := range entries {
		if win.Contains(entry.Date) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

func (x *BrowserExtractor) location() *time.Location {
	if x.Location != nil {
		return x.Location
	}
	return time.Local
}

func (x *BrowserExtractor) loginTimeout() time.Duration {
	if x.LoginTimeout > 0 {
		return x.LoginTimeout
	}
	return defaultLoginTimeout
}

func (x *BrowserExtractor) login(ctx context.Context, creds Credentials) error {
	loginCtx, cancel := context.WithTimeout(ctx, x.loginTimeout())
	defer cancel()

	err := chromedp.Run(loginCtx,
		chromedp.Navigate(x.BaseURL),
		chromedp.WaitVisible(`#Email`, chromedp.ByID),
		chromedp.SendKeys(`#Email`, creds.Email, chromedp.ByID),
		chromedp.SendKeys(`#Password`, creds.Password, chromedp.ByID),
		chromedp.Click(`#btnSubmit`, chromedp.ByID),
	)
	if err != nil {
		return faults.Transient("acumen login form", err)
	}

	// Some accounts get a confirm-continue popup when another session is
	// active; dismiss it when present.
	confirmCtx, confirmCancel := context.WithTimeout(ctx, 2*time.Second)
	_ = chromedp.Run(confirmCtx,
		chromedp.WaitVisible(`#confirmContinueLogin`, chromedp.ByID),
		chromedp.Click(`#btnContnueLogin`, chromedp.ByID),
	)
	confirmCancel()

	// The punches menu link only renders after a successful sign-in, so a
	// timeout here means the credentials were rejected.
	homeCtx, homeCancel := context.WithTimeout(ctx, x.loginTimeout())
	defer homeCancel()
	err = chromedp.Run(homeCtx,
		chromedp.WaitVisible(`#leftmenuLinkEmployerPunches`, chromedp.ByID),
	)
	if err != nil {
		return faults.Fatal("acumen login", fmt.Errorf("home page did not load after sign-in: %w", err))
	}
	return nil
}

func (x *BrowserExtractor) scrapePunches(ctx context.Context) (Table, error) {
	scrapeCtx, cancel := context.WithTimeout(ctx, x.loginTimeout())
	defer cancel()

	if err := chromedp.Run(scrapeCtx,
		chromedp.Click(`#leftmenuLinkEmployerPunches`, chromedp.ByID),
		chromedp.WaitVisible(`#tblPunches`, chromedp.ByID),
	); err != nil {
		return Table{}, faults.Transient("acumen punches page", err)
	}

	// Load the full window's worth of rows; the button disappears once
	// everything is shown.
	loadCtx, loadCancel := context.WithTimeout(ctx, 3*time.Second)
	_ = chromedp.Run(loadCtx, chromedp.Click(`#btnLoadmore`, chromedp.ByID))
	loadCancel()

	var table Table
	err := chromedp.Run(scrapeCtx,
		chromedp.Evaluate(
			`Array.from(document.querySelectorAll('#tblPunches thead tr th')).map(th => th.innerText.trim())`,
			&table.Header,
		),
		chromedp.Evaluate(
			`Array.from(document.querySelectorAll('#tblPunches tbody tr')).map(tr =>
				Array.from(tr.querySelectorAll('td')).map(td => td.innerText.trim()))`,
			&table.Rows,
		),
	)
	if err != nil {
		return Table{}, faults.Transient("acumen punches table", err)
	}
	return table, nil
}

// logout is best effort; an expired session at this point is harmless.
func (x *BrowserExtractor) logout(ctx context.Context) {
	logoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = chromedp.Run(logoutCtx,
		chromedp.Click(`#ChangeUsernameId1`, chromedp.ByID),
		chromedp.Click(`#logoutForm a`, chromedp.ByQuery),
	)
}
