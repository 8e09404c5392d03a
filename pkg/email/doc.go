// Package email sends transactional emails through Postmark, or writes them
// to disk during local development.
//
//	sender, err := email.NewFromConfig(cfg)
//	if err != nil {
//		return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "alice@example.com",
//		Subject:  "Launch party starts in 1 hour",
//		BodyText: "See you there",
//	})
//
// SendEmailParams.Validate reports problems as validator.ValidationErrors.
package email
