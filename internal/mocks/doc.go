// Package mocks provides centralized mock implementations for testing.
//
// Two styles live here. Function-field mocks (MockJWTService, MockSender,
// MockPublisher) suit tests that only need to stub a return value. Testify
// mocks (TestifyMockUserStore, TestifyMockNotificationStore) suit tests that
// assert on the exact calls made.
//
// Usage:
//
//	jwt := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{UserID: userID, Role: domain.RoleUser}, nil
//	    },
//	}
//
// For state-based fakes of whole stores see internal/testutils.
package mocks
