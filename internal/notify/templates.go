package notify

import "fmt"

// Render 生成每种通知邮件的收件人、主题和正文。
// ProjectCompleted 同时通知买卖双方，买家是主收件人，
// 卖家走第二封（见 handler）。
func Render(msg Message) (to, subject, html string) {
	switch m := msg.(type) {
	case SendEmail:
		return m.To, m.Subject, m.HTML

	case Welcome:
		subject = "Welcome to BuildBoard - Your Project Bidding Platform!"
		html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome to BuildBoard!</h2>
  <p>Hi %s,</p>
  <p>Welcome to BuildBoard, your go-to platform for project bidding and collaboration!</p>
  <ul>
    <li><strong>Post Projects:</strong> Share your project ideas and receive bids</li>
    <li><strong>Browse Projects:</strong> Find interesting projects to work on</li>
    <li><strong>Submit Bids:</strong> Compete for projects with your best offers</li>
    <li><strong>Build Reputation:</strong> Complete projects and earn reviews</li>
  </ul>
  <p>Best regards,<br>The BuildBoard Team</p>
</div>`, m.UserName)
		return m.UserEmail, subject, html

	case SellerSelection:
		subject = fmt.Sprintf("You've been selected for project: %s", m.ProjectTitle)
		html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Congratulations! You've been selected!</h2>
  <p>Hi %s,</p>
  <p>Great news! You have been selected to work on the project <strong>%q</strong> by %s.</p>
  <p>The project status has been updated to "In Progress". Please log in to your dashboard to view the project details and start working.</p>
</div>`, m.SellerName, m.ProjectTitle, m.BuyerName)
		return m.SellerEmail, subject, html

	case ProjectCompleted:
		subject = fmt.Sprintf("Project Completed: %s", m.ProjectTitle)
		html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Project Completed Successfully!</h2>
  <p>Hi %s,</p>
  <p>Your project <strong>%q</strong> has been marked as completed by %s.</p>
  <p>Please log in to your dashboard to review the deliverables and leave a review for the seller.</p>
</div>`, m.BuyerName, m.ProjectTitle, m.SellerName)
		return m.BuyerEmail, subject, html

	case BidNotification:
		subject = fmt.Sprintf("New bid on your project: %s", m.ProjectTitle)
		html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>You received a new bid</h2>
  <p>%s placed a bid of $%.2f on your project <strong>%q</strong>.</p>
  <p>Log in to your dashboard to review all bids and select a seller.</p>
</div>`, m.BidderName, m.BidAmount, m.ProjectTitle)
		return m.BuyerEmail, subject, html
	}

	return "", "", ""
}
