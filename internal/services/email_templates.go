package services

const emailStyle = `<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333333; background-color: #f4f4f4; margin: 0; padding: 0; }
.container { padding: 20px; max-width: 600px; margin: 20px auto; background-color: #ffffff; border: 1px solid #dddddd; border-radius: 8px; }
.header { font-size: 24px; font-weight: bold; color: #2a6f97; margin-bottom: 15px; }
.data-label { font-weight: bold; }
ul { list-style-type: none; padding: 0; }
li { margin-bottom: 10px; }
.footer { margin-top: 20px; font-size: 12px; color: #777777; text-align: center; }
p { margin-bottom: 15px; }
</style>`

const acceptanceEmailHTML = `<!DOCTYPE html>
<html>
<head>
` + emailStyle + `
</head>
<body>
<div class="container">
<p class="header">Your application has been accepted</p>
<p>Hi %s,</p>
<p>Good news! Your application for <strong>%s</strong> has been accepted.</p>
<ul>
  <li><span class="data-label">Start date:</span> %s</li>
  <li><span class="data-label">End date:</span> %s</li>
  <li><span class="data-label">Monthly rent:</span> %s</li>
  <li><span class="data-label">Deposit:</span> %s</li>
</ul>
<p>Please sign in to review your rental agreement and pay the deposit to activate your tenancy.</p>
<div class="footer">The %s Team</div>
</div>
</body>
</html>`

const rejectionEmailHTML = `<!DOCTYPE html>
<html>
<head>
` + emailStyle + `
</head>
<body>
<div class="container">
<p class="header">Update on your application</p>
<p>Hi %s,</p>
<p>Thank you for your interest in <strong>%s</strong>. Unfortunately your application was not successful this time.</p>
<p>You are welcome to apply for other available properties at any time.</p>
<div class="footer">The %s Team</div>
</div>
</body>
</html>`

const paymentReminderEmailHTML = `<!DOCTYPE html>
<html>
<head>
` + emailStyle + `
</head>
<body>
<div class="container">
<p class="header">Rent payment reminder</p>
<p>Hi %s,</p>
<p>Your monthly rent of <strong>%s</strong> is due on <strong>%s</strong>.</p>
<p>Please sign in to make your payment before the due date.</p>
<div class="footer">The %s Team</div>
</div>
</body>
</html>`
